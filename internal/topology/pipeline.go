package topology

import (
	"context"
	"fmt"
	"time"

	"github.com/caffix/pipeline"
	multierror "github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/workfloworchestrator/nsi-aura/internal/db"
	"github.com/workfloworchestrator/nsi-aura/internal/metrics"
	"github.com/workfloworchestrator/nsi-aura/internal/models"
	"github.com/workfloworchestrator/nsi-aura/internal/nsi"
)

// Pipeline runs one DDS poll end to end through four FIFO stages (fetch,
// parse, reconcile STPs, reconcile SDPs), using caffix/pipeline's staged
// shape applied to a single batched poll instead of a continuous queue.
type Pipeline struct {
	client *nsi.DDSClient
	ddsURL string
	store  *db.Store
	p      *pipeline.Pipeline
}

func NewPipeline(client *nsi.DDSClient, ddsURL string, store *db.Store) *Pipeline {
	stages := []pipeline.Stage{
		pipeline.FIFO("fetch", pipeline.TaskFunc(fetchStage)),
		pipeline.FIFO("parse", pipeline.TaskFunc(parseStage)),
		pipeline.FIFO("reconcile-stp", pipeline.TaskFunc(reconcileSTPStage)),
		pipeline.FIFO("reconcile-sdp", pipeline.TaskFunc(reconcileSDPStage)),
	}
	return &Pipeline{client: client, ddsURL: ddsURL, store: store, p: pipeline.NewPipeline(stages...)}
}

// Run executes one poll cycle to completion and returns the accumulated
// best-effort per-topology parse warnings (nil if every document parsed
// cleanly). A fetch, reconcile, or structural parse failure aborts the
// whole poll; individual malformed ports or topologies do not.
func (tp *Pipeline) Run(ctx context.Context) error {
	defer func(start time.Time) { metrics.TopologyPollDuration.Observe(time.Since(start).Seconds()) }(time.Now())

	seed := &pollData{client: tp.client, ddsURL: tp.ddsURL, store: tp.store}
	src := &singleItemSource{data: seed}

	var result *pollData
	sink := pipeline.SinkFunc(func(ctx context.Context, data pipeline.Data) error {
		pd, ok := data.(*pollData)
		if !ok {
			return fmt.Errorf("topology: pipeline sink received unexpected data")
		}
		result = pd
		return nil
	})

	if err := tp.p.ExecuteBuffered(ctx, src, sink, 1); err != nil {
		return fmt.Errorf("topology: pipeline run: %w", err)
	}
	if result != nil {
		return result.warnings
	}
	return nil
}

// pollData is the pipeline.Data threaded through every stage: it starts
// as just enough to fetch, and accumulates the poll's intermediate and
// final results as it passes through fetch -> parse -> reconcile.
type pollData struct {
	client *nsi.DDSClient
	ddsURL string
	store  *db.Store

	docs       Documents
	candidates []Candidate
	warnings   error
}

func (d *pollData) Clone() pipeline.Data { return d }

// singleItemSource is a pipeline.InputSource that yields exactly one Data
// item, for running the staged pipeline over one batch instead of a
// continuously-fed queue.
type singleItemSource struct {
	data pipeline.Data
	done bool
}

func (s *singleItemSource) Next(ctx context.Context) bool {
	if s.done {
		return false
	}
	s.done = true
	return true
}

func (s *singleItemSource) Data() pipeline.Data { return s.data }
func (s *singleItemSource) Error() error        { return nil }

func fetchStage(ctx context.Context, data pipeline.Data, _ pipeline.TaskParams) (pipeline.Data, error) {
	pd := data.(*pollData)
	docs, err := FetchDocuments(ctx, pd.client, pd.ddsURL)
	if err != nil {
		return nil, err
	}
	pd.docs = docs
	return pd, nil
}

func parseStage(ctx context.Context, data pipeline.Data, _ pipeline.TaskParams) (pipeline.Data, error) {
	pd := data.(*pollData)

	var all []Candidate
	var warnings error
	for topologyID, raw := range pd.docs[TopologyMimeType] {
		candidates, err := ParseTopology(topologyID, raw)
		if err != nil {
			warnings = multierror.Append(warnings, err)
		}
		all = append(all, candidates...)
	}
	pd.candidates = all
	pd.warnings = warnings
	return pd, nil
}

func reconcileSTPStage(ctx context.Context, data pipeline.Data, _ pipeline.TaskParams) (pipeline.Data, error) {
	pd := data.(*pollData)

	err := pd.store.Transaction(func(tx *gorm.DB) error {
		seen := make([]string, 0, len(pd.candidates))
		for _, c := range pd.candidates {
			seen = append(seen, c.StpID)
			fresh := &models.STP{
				StpID:         c.StpID,
				InboundPort:   c.InboundPort,
				OutboundPort:  c.OutboundPort,
				InboundAlias:  c.InboundAlias,
				OutboundAlias: c.OutboundAlias,
				VlanRange:     c.VlanRange,
				Description:   c.Description,
			}
			if _, err := db.UpsertSTP(tx, fresh); err != nil {
				return err
			}
		}
		return db.DeactivateSTPsNotIn(tx, seen)
	})
	if err != nil {
		return nil, fmt.Errorf("topology: reconcile stp: %w", err)
	}
	return pd, nil
}

func reconcileSDPStage(ctx context.Context, data pipeline.Data, _ pipeline.TaskParams) (pipeline.Data, error) {
	pd := data.(*pollData)
	pairs := DeriveSDPs(pd.candidates)

	err := pd.store.Transaction(func(tx *gorm.DB) error {
		var seen []db.SeenSDPPair
		for _, pair := range pairs {
			var a, z models.STP
			if err := tx.Where("stp_id = ?", pair.A.StpID).First(&a).Error; err != nil {
				return fmt.Errorf("lookup stp %s: %w", pair.A.StpID, err)
			}
			if err := tx.Where("stp_id = ?", pair.Z.StpID).First(&z).Error; err != nil {
				return fmt.Errorf("lookup stp %s: %w", pair.Z.StpID, err)
			}

			description := fmt.Sprintf("%s <-> %s", pair.A.Description, pair.Z.Description)
			if _, err := db.UpsertSDP(tx, a.ID, z.ID, pair.A.VlanRange, description); err != nil {
				return err
			}

			aID, zID := a.ID, z.ID
			if aID > zID {
				aID, zID = zID, aID
			}
			seen = append(seen, db.SeenSDPPair{StpAID: aID, StpZID: zID})
		}
		return db.DeactivateSDPsNotIn(tx, seen)
	})
	if err != nil {
		return nil, fmt.Errorf("topology: reconcile sdp: %w", err)
	}
	return pd, nil
}
