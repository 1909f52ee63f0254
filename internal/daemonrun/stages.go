package daemonrun

import (
	"log/slog"

	"contentflow/internal/config"
	"contentflow/internal/imagegen"
	"contentflow/internal/narration"
	"contentflow/internal/publishing"
	"contentflow/internal/relay"
	"contentflow/internal/textgen"
	"contentflow/internal/videogen"
	"contentflow/internal/workflow"
)

// BuildStages constructs the production handler for every stage. The daemon
// and the foreground run command share it.
func BuildStages(cfg *config.Config, registry *relay.Registry, logger *slog.Logger) workflow.StageSet {
	set := workflow.StageSet{
		Text:  textgen.NewGenerator(cfg, logger),
		Image: imagegen.NewGenerator(cfg, logger),
		Audio: narration.NewGenerator(cfg, logger),
		Video: videogen.NewGenerator(cfg, logger),
	}
	if registry != nil {
		set.Publish = publishing.NewPublisher(registry, logger)
	}
	return set
}
