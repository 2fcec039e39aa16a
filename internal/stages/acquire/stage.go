package acquire

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/command"
	"github.com/kingrea/mtprep/internal/dataset"
	"github.com/kingrea/mtprep/internal/stage"
)

const stageID = "acquire"

// TokenError reports a missing access token.
type TokenError struct {
	Dataset string
	Env     string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("acquire: %s requires an access token in $%s", e.Dataset, e.Env)
}

// Stage fetches and parses one corpus variant.
type Stage struct {
	*stage.Base
	desc dataset.Descriptor
}

// New constructs the acquire stage for desc.
func New(desc dataset.Descriptor) *Stage {
	base := stage.NewBase(stage.Info{
		ID:          stageID,
		Name:        "Acquire corpus",
		Description: "Downloads the corpus and prepares raw recording and supervision manifests.",
	})
	var outputs []artifact.ManifestRef
	for _, split := range desc.Splits {
		outputs = append(outputs,
			desc.Manifest(artifact.KindRecordings, split),
			desc.Manifest(artifact.KindSupervisions, split),
		)
	}
	base.SetOutputs(outputs...)
	return &Stage{Base: &base, desc: desc}
}

// IsComplete reports whether every split has been acquired.
func (s *Stage) IsComplete(sc *stage.Context) (bool, error) {
	for _, split := range s.desc.Splits {
		done, err := s.splitAcquired(sc, split)
		if err != nil || !done {
			return false, err
		}
	}
	return true, nil
}

func (s *Stage) splitAcquired(sc *stage.Context, split string) (bool, error) {
	recordings, err := sc.Store.Exists(s.desc.Manifest(artifact.KindRecordings, split))
	if err != nil || !recordings {
		return false, err
	}
	for _, kind := range []artifact.Kind{artifact.KindSupervisions, artifact.KindCutSetUnprefixed, artifact.KindCutSet} {
		ok, err := sc.Store.Exists(s.desc.Manifest(kind, split))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Run downloads the corpus when needed and prepares its manifests.
func (s *Stage) Run(ctx context.Context, sc *stage.Context) (stage.Result, error) {
	if err := sc.Validate(stageID); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	if err := s.desc.Validate(); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	env := map[string]string{}
	if s.desc.TokenEnv != "" {
		name := sc.Config.TokenEnv(s.desc.Name, s.desc.TokenEnv)
		token := os.Getenv(name)
		if token == "" {
			return stage.Result{Status: stage.StatusFailed}, &TokenError{Dataset: s.desc.Name, Env: name}
		}
		env[name] = token
	}
	corpus := string(s.desc.Family)
	corpusDir := sc.Config.CorpusDir(corpus)

	namespaced, err := s.namespacedSplits(sc)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}

	downloaded, err := artifact.DirExists(corpusDir)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
	}
	if downloaded {
		sc.Logger.Debug("%s: %s already present, skipping download", s.desc.Name, corpusDir)
	} else {
		args := append([]string{"download", corpus, corpusDir}, s.micArgs()...)
		if err := s.run(ctx, sc, args, env); err != nil {
			return stage.Result{Status: stage.StatusFailed}, err
		}
	}

	outDir := sc.Store.FamilyDir(corpus)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: ensure %s: %w", stageID, outDir, err)
	}
	args := append([]string{"prepare", corpus, corpusDir, outDir}, s.micArgs()...)
	args = append(args, "-j", strconv.Itoa(sc.Config.Project.NumJobs))
	if err := s.run(ctx, sc, args, env); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}

	// Preparation rewrites raw supervisions for every split. For splits past
	// namespacing that file would shadow the re-extracted supervisions, so it
	// is removed and regenerated from the namespaced cut-set.
	for _, split := range namespaced {
		if err := sc.Store.Remove(s.desc.Manifest(artifact.KindSupervisions, split)); err != nil {
			return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: %w", stageID, err)
		}
	}
	return stage.Result{Status: stage.StatusCompleted}, nil
}

// Verify lists the manifests Run must leave behind: recordings for every
// split and raw supervisions for the splits not yet namespaced.
func (s *Stage) Verify(sc *stage.Context) ([]artifact.ManifestRef, error) {
	var refs []artifact.ManifestRef
	for _, split := range s.desc.Splits {
		refs = append(refs, s.desc.Manifest(artifact.KindRecordings, split))
		ns, err := sc.Store.Exists(s.desc.Manifest(artifact.KindCutSet, split))
		if err != nil {
			return nil, err
		}
		if !ns {
			refs = append(refs, s.desc.Manifest(artifact.KindSupervisions, split))
		}
	}
	return refs, nil
}

func (s *Stage) namespacedSplits(sc *stage.Context) ([]string, error) {
	var out []string
	for _, split := range s.desc.Splits {
		ok, err := sc.Store.Exists(s.desc.Manifest(artifact.KindCutSet, split))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, split)
		}
	}
	return out, nil
}

func (s *Stage) micArgs() []string {
	if !s.desc.Family.HasVariants() {
		return nil
	}
	return []string{"--mic", s.desc.Variant}
}

func (s *Stage) run(ctx context.Context, sc *stage.Context, args []string, env map[string]string) error {
	if sc.Runner == nil {
		return fmt.Errorf("%s: command runner is required", stageID)
	}
	req := command.Request{Command: sc.Config.Project.LhotseBin, Args: args, Env: env}
	sc.Logger.Info("%s: %s", s.desc.Name, req)
	if _, err := sc.Runner.Run(ctx, req); err != nil {
		return fmt.Errorf("%s: %w", stageID, err)
	}
	return nil
}
