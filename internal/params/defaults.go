package params

import "github.com/zclconf/go-cty/cty"

// Defaults returns the compiled-in parameter table for a stock installation
// of the HCP minimal processing tools. Manifests overlay these values.
func Defaults() *Model {
	// Each stage gets its own env map so manifest overlays for one stage
	// cannot leak into another.
	fslEnv := func() map[string]string {
		return map[string]string{"FSLOUTPUTTYPE": "NIFTI_GZ"}
	}

	return &Model{
		Stages: map[string]*StageParams{
			StagePreFreeSurfer: {
				Executable: "PreFreeSurferPipeline.sh",
				Env:        fslEnv(),
				Options: map[string]cty.Value{
					"brain_size":  cty.NumberIntVal(150),
					"t1_template": cty.StringVal("MNI152_T1_1mm.nii.gz"),
					"t2_template": cty.StringVal("MNI152_T2_1mm.nii.gz"),
				},
			},
			StageFreeSurfer: {
				Executable: "FreeSurferPipeline.sh",
				Env:        fslEnv(),
			},
			StagePostFreeSurfer: {
				Executable: "PostFreeSurferPipeline.sh",
				Env:        fslEnv(),
				Options: map[string]cty.Value{
					"grayordinates_resolution": cty.NumberIntVal(2),
					"low_res_mesh":             cty.NumberIntVal(32),
					"high_res_mesh":            cty.NumberIntVal(164),
					"surface_registration":     cty.StringVal("FS"),
				},
			},
			StageFMRIVolume: {
				Executable: "GenericfMRIVolumeProcessingPipeline.sh",
				Env:        fslEnv(),
				Options: map[string]cty.Value{
					"fmri_resolution": cty.NumberIntVal(2),
				},
			},
			StageFMRISurface: {
				Executable: "GenericfMRISurfaceProcessingPipeline.sh",
				Env:        fslEnv(),
				Options: map[string]cty.Value{
					"smoothing_fwhm":           cty.NumberIntVal(2),
					"grayordinates_resolution": cty.NumberIntVal(2),
				},
			},
			StageSignalPreprocessing: {
				Executable: "dcan_signal_processing.py",
				Options: map[string]cty.Value{
					"filter_order": cty.NumberIntVal(2),
					"lower_bpf":    cty.NumberFloatVal(0.009),
					"upper_bpf":    cty.NumberFloatVal(0.080),
					"fd_threshold": cty.NumberFloatVal(0.3),
				},
			},
			StageExecutiveSummary: {
				Executable: "executive_summary.py",
			},
		},
	}
}
