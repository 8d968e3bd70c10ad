package testreports

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tamrielmeta/buildscry/internal/adapters/esologs"
	service "github.com/tamrielmeta/buildscry/internal/app"
	"github.com/tamrielmeta/buildscry/internal/domain/model"
)

// memorySource serves generated reports through the same contract the scan
// service drives the logs API with.
type memorySource struct {
	mu      sync.Mutex
	zone    model.Zone
	reports map[string]model.Report
	tables  map[string][]byte
	rank    []model.Ranking
	boons   map[string]string
}

var _ service.Source = (*memorySource)(nil)

func tableKey(code string, fightID int, dataType string) string {
	return fmt.Sprintf("%s/%d/%s", code, fightID, dataType)
}

func boonKey(code string, fightID, sourceID int) string {
	return fmt.Sprintf("%s/%d/%d", code, fightID, sourceID)
}

// newMemorySource indexes the generated clears under a single trial.
func newMemorySource(clears []syntheticReport) (*memorySource, error) {
	s := &memorySource{
		zone: model.Zone{
			ID:         19,
			Name:       trialName,
			Encounters: []model.Encounter{{ID: 53, Name: bossName}},
		},
		reports: make(map[string]model.Report, len(clears)),
		tables:  make(map[string][]byte),
		boons:   make(map[string]string),
	}

	for _, clear := range clears {
		s.reports[clear.code] = clear.report

		summary, err := clear.summaryTable()
		if err != nil {
			return nil, fmt.Errorf("building summary table for %s: %w", clear.code, err)
		}
		damage, err := clear.damageTable()
		if err != nil {
			return nil, fmt.Errorf("building damage table for %s: %w", clear.code, err)
		}
		healing, err := clear.healingTable()
		if err != nil {
			return nil, fmt.Errorf("building healing table for %s: %w", clear.code, err)
		}

		fightID := clear.report.Fights[0].ID
		s.tables[tableKey(clear.code, fightID, esologs.TableSummary)] = summary
		s.tables[tableKey(clear.code, fightID, esologs.TableDamageDone)] = damage
		s.tables[tableKey(clear.code, fightID, esologs.TableHealing)] = healing

		for _, m := range clear.squad {
			if m.arch.boon != "" {
				s.boons[boonKey(clear.code, fightID, m.sourceID)] = m.arch.boon
			}
		}

		s.rank = append(s.rank, model.Ranking{
			PlayerName: clear.squad[0].arch.name,
			Class:      clear.squad[0].arch.class,
			Amount:     clear.squad[0].metric,
			ReportCode: clear.code,
			FightID:    fightID,
		})
	}

	return s, nil
}

func (s *memorySource) Zones(ctx context.Context) ([]model.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []model.Zone{s.zone}, nil
}

func (s *memorySource) TopRankings(ctx context.Context, zoneID, encounterID, limit int) ([]model.Ranking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rankings := s.rank
	if limit > 0 && limit < len(rankings) {
		rankings = rankings[:limit]
	}
	return append([]model.Ranking(nil), rankings...), nil
}

func (s *memorySource) Report(ctx context.Context, code string) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[code]
	if !ok {
		return model.Report{}, esologs.ErrReportNotFound
	}
	return report, nil
}

func (s *memorySource) Table(ctx context.Context, code string, fightID int, startTime, endTime int64, dataType string, combatantInfo bool) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.tables[tableKey(code, fightID, dataType)]
	if !ok {
		return nil, fmt.Errorf("no %s table for report %s fight %d", dataType, code, fightID)
	}
	return json.RawMessage(raw), nil
}

func (s *memorySource) PlayerBoon(ctx context.Context, reportCode string, fightID, sourceID int, startTime, endTime int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boons[boonKey(reportCode, fightID, sourceID)], nil
}

func (s *memorySource) CacheStats() esologs.CacheStats {
	return esologs.CacheStats{}
}
