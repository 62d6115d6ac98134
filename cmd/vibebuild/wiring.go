package main

import (
	"context"

	"github.com/ssokkol/koji-vibebuild/internal/adapters/command"
	"github.com/ssokkol/koji-vibebuild/internal/adapters/download"
	"github.com/ssokkol/koji-vibebuild/internal/adapters/hub"
	"github.com/ssokkol/koji-vibebuild/internal/adapters/logging"
	"github.com/ssokkol/koji-vibebuild/internal/domain/archive"
	"github.com/ssokkol/koji-vibebuild/internal/domain/canon"
	"github.com/ssokkol/koji-vibebuild/internal/domain/config"
	"github.com/ssokkol/koji-vibebuild/internal/domain/fetch"
	"github.com/ssokkol/koji-vibebuild/internal/domain/graph"
	"github.com/ssokkol/koji-vibebuild/internal/domain/mlfallback"
	"github.com/ssokkol/koji-vibebuild/internal/domain/orchestrate"
	"github.com/ssokkol/koji-vibebuild/internal/ports"
)

// stack bundles every wired component a command needs, built once from the
// resolved configuration.
type stack struct {
	cfg           config.ResolverConfig
	logger        ports.Logger
	runner        ports.CommandRunner
	hubClient     ports.HubClient
	reader        *archive.Reader
	canonicalizer *canon.NameCanonicalizer
	fetcher       *fetch.Fetcher
	resolver      *graph.Resolver
	orchestrator  *orchestrate.Orchestrator
}

func buildStack(cfgPath string) (*stack, error) {
	cfg, err := config.NewLoader().Load(cfgPath)
	if err != nil {
		return nil, err
	}

	var logger ports.Logger
	if verbose {
		logger = logging.NewConsoleLogger(logging.WithLevel(ports.LevelDebug))
	} else {
		logger = logging.NewConsoleLogger(logging.WithLevel(ports.LevelInfo))
	}

	runner := command.NewRealRunner()

	hubOpts := []hub.Option{hub.WithLogger(logger)}
	if cfg.ClientCert != "" {
		hubOpts = append(hubOpts, hub.WithCert(cfg.ClientCert, cfg.ServerCA))
	}
	if cfg.NoSSLVerify {
		hubOpts = append(hubOpts, hub.WithoutSSLVerify())
	}
	hubClient := hub.NewClient(runner, cfg.HubServer, hubOpts...)

	reader := archive.NewReader(runner)

	var canonOpts []canon.Option
	if cfg.NameResolution == config.ModeRulesAndML && cfg.MLModelPath != "" {
		resolver := mlfallback.New(cfg.MLModelPath, mlfallback.DefaultCacheFile())
		canonOpts = append(canonOpts, canon.WithPredictor(resolver))
	}
	canonicalizer := canon.New(canonOpts...)

	var downloadOpts []download.Option
	if cfg.NoSSLVerify {
		downloadOpts = append(downloadOpts, download.WithoutTLSVerify())
	}
	downloader := download.NewClient(downloadOpts...)

	var fetchOpts []fetch.Option
	fetchOpts = append(fetchOpts, fetch.WithLogger(logger), fetch.WithFedoraRelease(cfg.FedoraRelease))
	if len(cfg.Sources) > 0 {
		fetchOpts = append(fetchOpts, fetch.WithSources(parseSources(cfg.Sources)))
	}
	fetcher := fetch.New(hubClient, downloader, runner, cfg.ArchiveCacheDir, cfg.HubTarget, fetchOpts...)

	var resolveCanon graph.Canonicalizer = canonicalizer
	if cfg.NameResolution == config.ModeOff {
		resolveCanon = identityCanonicalizer{}
	}
	resolver := graph.NewResolver(reader, resolveCanon, hubClient, cfg.HubBuildTag)

	orch := orchestrate.New(hubClient, reader, resolver, logger, orchestrate.Config{
		HubBuildTag:         cfg.HubBuildTag,
		HubTarget:           cfg.HubTarget,
		MaxParallelPerLevel: cfg.MaxParallelPerLevel,
		Scratch:             cfg.Scratch,
		NoWait:              cfg.NoWait,
	})

	return &stack{
		cfg:           cfg,
		logger:        logger,
		runner:        runner,
		hubClient:     hubClient,
		reader:        reader,
		canonicalizer: canonicalizer,
		fetcher:       fetcher,
		resolver:      resolver,
		orchestrator:  orch,
	}, nil
}

// identityCanonicalizer is wired when nameResolution is "off": tokens pass
// through unchanged.
type identityCanonicalizer struct{}

func (identityCanonicalizer) Canonicalize(token string) string { return token }

func parseSources(ids []string) []fetch.Source {
	defaults := fetch.DefaultSources()
	byID := make(map[string]fetch.Source, len(defaults))
	for _, s := range defaults {
		byID[s.ID] = s
	}
	out := make([]fetch.Source, 0, len(ids))
	for i, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, fetch.Source{ID: id, Priority: (i + 1) * 10})
	}
	return out
}

// resolveArchive adapts a stack's fetcher into the graph package's
// ArchiveResolverFunc signature.
func (s *stack) resolveArchive(ctx context.Context, name string) (string, error) {
	return s.fetcher.Fetch(ctx, name, "")
}
