package bids

import (
	"os"
	"path/filepath"
	"strings"
)

// SidecarFor resolves the JSON sidecar for an image file. It first looks next
// to the image, then falls back to the dataset root per the BIDS inheritance
// principle (a root-level JSON without the sub-/ses- entities applies to all
// matching runs). Returns "" when no sidecar exists.
func SidecarFor(root string, imagePath string) string {
	base := filepath.Base(imagePath)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".nii")
	sidecarName := base + ".json"

	local := filepath.Join(filepath.Dir(imagePath), sidecarName)
	if fileExists(local) {
		return local
	}

	inherited := filepath.Join(root, stripSubjectEntities(sidecarName))
	if fileExists(inherited) {
		return inherited
	}

	return ""
}

// stripSubjectEntities removes the sub- and ses- key/value entities from a
// BIDS filename, leaving the dataset-level form (e.g. task-rest_bold.json).
func stripSubjectEntities(name string) string {
	parts := strings.Split(name, "_")
	kept := parts[:0]
	for _, part := range parts {
		if strings.HasPrefix(part, "sub-") || strings.HasPrefix(part, "ses-") {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "_")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
