package usecase

import (
	"context"
	"encoding/json"

	"PriceTrack/pkg/queue"
)

// TrainingJobType routes queued training sessions.
const TrainingJobType = "forecast.train"

// TrainingJob runs queued training sessions.
type TrainingJob struct {
	uc *ForecastUseCase
}

var _ queue.Job = (*TrainingJob)(nil)

func NewTrainingJob(uc *ForecastUseCase) *TrainingJob {
	return &TrainingJob{uc: uc}
}

func (j *TrainingJob) Name() string { return "forecast-training" }

func (j *TrainingJob) Type() string { return TrainingJobType }

func (j *TrainingJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[TrainingPayload](payload)
	if err != nil {
		return err
	}
	return j.uc.RunTraining(ctx, p.SessionID, p.Prices)
}
