package pipeline

import (
	"fmt"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
)

// NewMasteringChain builds the fixed-order Adaptive Pipeline chain for
// one session: EQ, then dynamics, then stereo width, then the limiter
// (spec.md §4.4). sessionID namespaces each stage's processor ID so a
// ProcessorFactory can tell sessions' chains apart in logs/metrics.
func NewMasteringChain(sessionID string) (audiocore.ProcessorChain, error) {
	chain := audiocore.NewProcessorChain()

	stages := []audiocore.AudioProcessor{
		NewEQStage(fmt.Sprintf("%s:eq", sessionID)),
		NewDynamicsStage(fmt.Sprintf("%s:dynamics", sessionID)),
		NewStereoWidthStage(fmt.Sprintf("%s:width", sessionID)),
		NewLimiterStage(fmt.Sprintf("%s:limiter", sessionID)),
	}

	for _, stage := range stages {
		if err := chain.AddProcessor(stage); err != nil {
			return nil, err
		}
	}

	return chain, nil
}
