// Package bids discovers subjects and sessions in a BIDS-formatted dataset
// and resolves the image files each processing stage consumes.
package bids

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dcan-labs/fmripipe/internal/ctxlog"
	"github.com/dcan-labs/fmripipe/internal/fsutil"
)

// NoSessionLabel is the synthetic session label used when a subject has no
// ses-* directories, and keeps output paths uniform (sub-X/ses-none).
const NoSessionLabel = "none"

// Session is one unit of processing: a subject/session pair together with
// the image files discovered under it.
type Session struct {
	Subject string
	Session string

	// Collapsed marks a synthetic session merged from several real ones.
	// Consumers keep the ses- entity in derived names so runs from
	// different source sessions stay distinguishable.
	Collapsed bool

	// T1w, T2w, Bold, and Fieldmaps hold absolute paths to the discovered
	// NIfTI images, sorted lexically.
	T1w       []string
	T2w       []string
	Bold      []string
	Fieldmaps []string

	// Sidecars maps each discovered image to its resolved JSON sidecar,
	// honoring root-level inheritance. Images without a sidecar are absent.
	Sidecars map[string]string
}

// Options controls dataset discovery.
type Options struct {
	// ParticipantLabels restricts discovery to the given subjects. Labels may
	// be given with or without the "sub-" prefix. Empty means all subjects.
	ParticipantLabels []string

	// CollectOnSubject collapses all sessions of a subject into one.
	CollectOnSubject bool
}

// ReadDataset walks the dataset root and returns its sessions in lexical
// subject/session order. A dataset with no matching subjects yields an empty
// slice, not an error.
func ReadDataset(ctx context.Context, root string, opts Options) ([]Session, error) {
	logger := ctxlog.FromContext(ctx)

	subjects, err := fsutil.ListDirsByPrefix(root, "sub-")
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects in %s: %w", root, err)
	}
	logger.Debug("Subject directories found.", "count", len(subjects))

	wanted := labelSet(opts.ParticipantLabels)

	var sessions []Session
	for _, subjectDir := range subjects {
		subject := strings.TrimPrefix(subjectDir, "sub-")
		if len(wanted) > 0 {
			if _, ok := wanted[subject]; !ok {
				logger.Debug("Subject filtered out by participant list.", "subject", subject)
				continue
			}
		}

		subjectSessions, err := readSubject(filepath.Join(root, subjectDir), subject)
		if err != nil {
			return nil, err
		}
		for i := range subjectSessions {
			resolveSidecars(root, &subjectSessions[i])
		}

		if opts.CollectOnSubject && len(subjectSessions) > 1 {
			merged := collapseSessions(subject, subjectSessions)
			logger.Debug("Collapsed sessions for subject.", "subject", subject, "merged_label", merged.Session)
			subjectSessions = []Session{merged}
		}

		sessions = append(sessions, subjectSessions...)
	}

	logger.Info("Dataset discovery complete.", "sessions", len(sessions))
	return sessions, nil
}

// readSubject returns the sessions under one sub-* directory. A subject
// without ses-* directories is treated as a single implicit session.
func readSubject(subjectPath string, subject string) ([]Session, error) {
	sessionDirs, err := fsutil.ListDirsByPrefix(subjectPath, "ses-")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for subject %s: %w", subject, err)
	}

	if len(sessionDirs) == 0 {
		session, err := readSession(subjectPath, subject, NoSessionLabel)
		if err != nil {
			return nil, err
		}
		return []Session{session}, nil
	}

	var sessions []Session
	for _, sessionDir := range sessionDirs {
		label := strings.TrimPrefix(sessionDir, "ses-")
		session, err := readSession(filepath.Join(subjectPath, sessionDir), subject, label)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// readSession collects the image files under one session tree.
func readSession(sessionPath string, subject string, label string) (Session, error) {
	session := Session{Subject: subject, Session: label}

	collect := func(modality string, suffixes ...string) ([]string, error) {
		return fsutil.FindFilesBySuffixes(filepath.Join(sessionPath, modality), suffixes...)
	}

	var err error
	if session.T1w, err = collect("anat", "_T1w.nii", "_T1w.nii.gz"); err != nil {
		return Session{}, fmt.Errorf("failed to read anat for sub-%s: %w", subject, err)
	}
	if session.T2w, err = collect("anat", "_T2w.nii", "_T2w.nii.gz"); err != nil {
		return Session{}, fmt.Errorf("failed to read anat for sub-%s: %w", subject, err)
	}
	if session.Bold, err = collect("func", "_bold.nii", "_bold.nii.gz"); err != nil {
		return Session{}, fmt.Errorf("failed to read func for sub-%s: %w", subject, err)
	}
	if session.Fieldmaps, err = collect("fmap", ".nii", ".nii.gz"); err != nil {
		return Session{}, fmt.Errorf("failed to read fmap for sub-%s: %w", subject, err)
	}

	return session, nil
}

// collapseSessions merges all sessions of a subject into a single synthetic
// session whose label concatenates the originals.
func collapseSessions(subject string, sessions []Session) Session {
	merged := Session{Subject: subject, Collapsed: true}

	var labels []string
	for _, s := range sessions {
		labels = append(labels, s.Session)
		merged.T1w = append(merged.T1w, s.T1w...)
		merged.T2w = append(merged.T2w, s.T2w...)
		merged.Bold = append(merged.Bold, s.Bold...)
		merged.Fieldmaps = append(merged.Fieldmaps, s.Fieldmaps...)
		for image, sidecar := range s.Sidecars {
			if merged.Sidecars == nil {
				merged.Sidecars = make(map[string]string)
			}
			merged.Sidecars[image] = sidecar
		}
	}
	merged.Session = strings.Join(labels, "+")

	return merged
}

// resolveSidecars fills the session's sidecar map for every discovered image.
func resolveSidecars(root string, session *Session) {
	for _, images := range [][]string{session.T1w, session.T2w, session.Bold, session.Fieldmaps} {
		for _, image := range images {
			sidecar := SidecarFor(root, image)
			if sidecar == "" {
				continue
			}
			if session.Sidecars == nil {
				session.Sidecars = make(map[string]string)
			}
			session.Sidecars[image] = sidecar
		}
	}
}

// labelSet normalizes participant labels into a lookup set, accepting both
// "sub-ABC" and bare "ABC" forms.
func labelSet(labels []string) map[string]struct{} {
	if len(labels) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		set[strings.TrimPrefix(label, "sub-")] = struct{}{}
	}
	return set
}
