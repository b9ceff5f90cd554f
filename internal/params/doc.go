// Package params defines the stage parameter model and its HCL manifest
// loader.
//
// Every pipeline stage is driven by a StageParams record: the external
// executable to invoke, environment to export, and a table of typed option
// values. Compiled-in defaults cover a stock installation; operators override
// them with .hcl manifests, which merge over the defaults per stage and per
// key. The canonical stage names and their fixed execution order also live
// here, since the manifest layer is what defines which stages exist.
package params
