// Package esologs is a GraphQL client for the esologs.com v2 API.
//
// The client authenticates with OAuth2 client credentials, paces
// requests through a rate limiter, and caches report-scoped responses
// in a two-tier memory/disk cache. Combat reports are immutable once
// uploaded, so cached report data never expires; zone and ranking
// queries change between scans and always go to the API.
package esologs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/tamrielmeta/buildscry/internal/domain/model"
	"github.com/tamrielmeta/buildscry/pkg/logger"
	"github.com/tamrielmeta/buildscry/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultEndpoint  = "https://www.esologs.com/api/v2/client"
	defaultTokenURL  = "https://www.esologs.com/oauth/token"
	defaultRPS       = 2
	defaultBurst     = 5
	defaultCacheSize = 512
	defaultCacheDir  = "cache"

	requestTimeout   = 30 * time.Second
	maxResponseBytes = 32 << 20
)

// Client talks to the esologs.com GraphQL API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	tokenURL   string
	limiter    *rate.Limiter
	cache      *responseCache
	cacheSize  int
	cacheDir   string
	log        logger.Logger
}

// New creates a client with configuration options. Empty credentials
// leave the client unauthenticated, which only works against test
// servers.
func New(ctx context.Context, clientID, clientSecret string, opts ...Option) (*Client, error) {
	c := &Client{
		endpoint:  defaultEndpoint,
		tokenURL:  defaultTokenURL,
		limiter:   rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		cacheSize: defaultCacheSize,
		cacheDir:  defaultCacheDir,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Get().Named("esologs")
	}

	cache, err := newResponseCache(c.cacheSize, c.cacheDir)
	if err != nil {
		return nil, err
	}
	c.cache = cache

	if c.httpClient == nil {
		base := &http.Client{Timeout: requestTimeout}
		if clientID == "" || clientSecret == "" {
			c.log.Warn(ctx, "no API credentials configured, requests will be unauthenticated")
			c.httpClient = base
		} else {
			cfg := clientcredentials.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenURL:     c.tokenURL,
			}
			c.httpClient = cfg.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		}
	}

	return c, nil
}

// CacheStats returns the running cache counters.
func (c *Client) CacheStats() CacheStats {
	return c.cache.stats()
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors,omitempty"`
}

// query runs one GraphQL operation. A non-empty cacheKey makes the
// response durable: cached bytes are served without touching the API or
// the rate limiter.
func (c *Client) query(ctx context.Context, op, cacheKey, query string, variables map[string]any) (json.RawMessage, error) {
	if cacheKey != "" {
		if data, ok := c.cache.get(cacheKey); ok {
			return data, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	body, err := sonic.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", op, err)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(op, "error", float64(time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("calling %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.RecordAPICall(op, "error", float64(time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("reading %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordAPICall(op, "http_error", float64(time.Since(start).Milliseconds()))
		c.log.Warn(ctx, "api returned error status",
			logger.String("operation", op),
			logger.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%s returned status %d", op, resp.StatusCode)
	}

	var envelope graphqlResponse
	if err := sonic.Unmarshal(raw, &envelope); err != nil {
		metrics.RecordAPICall(op, "error", float64(time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("decoding %s response: %w", op, ErrMalformedPayload)
	}

	if len(envelope.Errors) > 0 {
		metrics.RecordAPICall(op, "graphql_error", float64(time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("%s: %s: %w", op, envelope.Errors[0].Message, ErrGraphQL)
	}

	metrics.RecordAPICall(op, "success", float64(time.Since(start).Milliseconds()))

	if cacheKey != "" {
		c.cache.put(cacheKey, envelope.Data)
	}
	return envelope.Data, nil
}

// Zones lists the trial zones with their encounter rosters.
func (c *Client) Zones(ctx context.Context) ([]model.Zone, error) {
	data, err := c.query(ctx, "zones", "", zonesQuery, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		WorldData struct {
			Zones []struct {
				ID         int    `json:"id"`
				Name       string `json:"name"`
				Encounters []struct {
					ID   int    `json:"id"`
					Name string `json:"name"`
				} `json:"encounters"`
			} `json:"zones"`
		} `json:"worldData"`
	}
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding zones: %w", ErrMalformedPayload)
	}

	zones := make([]model.Zone, 0, len(payload.WorldData.Zones))
	for _, z := range payload.WorldData.Zones {
		zone := model.Zone{ID: z.ID, Name: z.Name}
		for _, e := range z.Encounters {
			zone.Encounters = append(zone.Encounters, model.Encounter{ID: e.ID, Name: e.Name})
		}
		zones = append(zones, zone)
	}

	c.log.Debug(ctx, "fetched zones", logger.Int("count", len(zones)))
	return zones, nil
}

type rankingEntry struct {
	Name   string  `json:"name"`
	Class  string  `json:"class"`
	Spec   string  `json:"spec"`
	Amount float64 `json:"amount"`
	Report struct {
		Code      string `json:"code"`
		FightID   int    `json:"fightID"`
		StartTime int64  `json:"startTime"`
	} `json:"report"`
}

// TopRankings returns the top damage rankings for an encounter, newest
// logs moving the board, so never cached. Entries without a report code
// are dropped.
func (c *Client) TopRankings(ctx context.Context, zoneID, encounterID, limit int) ([]model.Ranking, error) {
	variables := map[string]any{
		"zoneID":      zoneID,
		"encounterID": encounterID,
		"limit":       limit,
	}
	data, err := c.query(ctx, "rankings", "", rankingsQuery, variables)
	if err != nil {
		return nil, err
	}

	var payload struct {
		WorldData struct {
			Encounter struct {
				CharacterRankings json.RawMessage `json:"characterRankings"`
			} `json:"encounter"`
		} `json:"worldData"`
	}
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding rankings: %w", ErrMalformedPayload)
	}
	if len(payload.WorldData.Encounter.CharacterRankings) == 0 {
		return nil, nil
	}

	// The rankings scalar has carried its entries under both "rankings"
	// and "data" across API revisions.
	var scalar struct {
		Rankings []rankingEntry `json:"rankings"`
		Data     []rankingEntry `json:"data"`
	}
	if err := sonic.Unmarshal(payload.WorldData.Encounter.CharacterRankings, &scalar); err != nil {
		return nil, fmt.Errorf("decoding rankings entries: %w", ErrMalformedPayload)
	}

	entries := scalar.Rankings
	if len(entries) == 0 {
		entries = scalar.Data
	}

	rankings := make([]model.Ranking, 0, len(entries))
	for _, e := range entries {
		if e.Report.Code == "" {
			continue
		}
		rankings = append(rankings, model.Ranking{
			PlayerName: e.Name,
			Class:      e.Class,
			Spec:       e.Spec,
			Amount:     e.Amount,
			ReportCode: e.Report.Code,
			FightID:    e.Report.FightID,
			StartTime:  e.Report.StartTime,
		})
	}

	c.log.Debug(ctx, "fetched rankings",
		logger.Int("zone_id", zoneID),
		logger.Int("encounter_id", encounterID),
		logger.Int("count", len(rankings)),
	)
	return rankings, nil
}

// Report fetches a combat report with its full pull list.
func (c *Client) Report(ctx context.Context, code string) (model.Report, error) {
	variables := map[string]any{"code": code}
	data, err := c.query(ctx, "report", "report_"+code, reportQuery, variables)
	if err != nil {
		metrics.RecordReportFailed()
		return model.Report{}, err
	}

	var payload struct {
		ReportData struct {
			Report *struct {
				Code        string `json:"code"`
				Title       string `json:"title"`
				StartTime   int64  `json:"startTime"`
				EndTime     int64  `json:"endTime"`
				GameVersion string `json:"gameVersion"`
				Fights      []struct {
					ID         int    `json:"id"`
					Name       string `json:"name"`
					StartTime  int64  `json:"startTime"`
					EndTime    int64  `json:"endTime"`
					Difficulty int    `json:"difficulty"`
					Kill       bool   `json:"kill"`
				} `json:"fights"`
			} `json:"report"`
		} `json:"reportData"`
	}
	if err := sonic.Unmarshal(data, &payload); err != nil {
		metrics.RecordReportFailed()
		return model.Report{}, fmt.Errorf("decoding report %s: %w", code, ErrMalformedPayload)
	}

	r := payload.ReportData.Report
	if r == nil {
		metrics.RecordReportFailed()
		return model.Report{}, fmt.Errorf("report %s: %w", code, ErrReportNotFound)
	}

	report := model.Report{
		Code:        r.Code,
		Title:       r.Title,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		GameVersion: r.GameVersion,
		Fights:      make([]model.Fight, 0, len(r.Fights)),
	}
	for _, f := range r.Fights {
		report.Fights = append(report.Fights, model.Fight{
			ID:         f.ID,
			Name:       f.Name,
			StartTime:  f.StartTime,
			EndTime:    f.EndTime,
			Difficulty: f.Difficulty,
			Kill:       f.Kill,
		})
	}

	metrics.RecordReportFetched()
	c.log.Debug(ctx, "fetched report",
		logger.String("code", code),
		logger.Int("fights", len(report.Fights)),
	)
	return report, nil
}

// Table fetches one data table for a fight window and returns the raw
// table JSON for the parser.
func (c *Client) Table(ctx context.Context, code string, fightID int, startTime, endTime int64, dataType string, combatantInfo bool) (json.RawMessage, error) {
	variables := map[string]any{
		"code":          code,
		"fightIDs":      []int{fightID},
		"startTime":     startTime,
		"endTime":       endTime,
		"dataType":      dataType,
		"combatantInfo": combatantInfo,
	}
	cacheKey := fmt.Sprintf("table_%s_%d_%s_%t", code, fightID, dataType, combatantInfo)
	data, err := c.query(ctx, "table", cacheKey, tableQuery, variables)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ReportData struct {
			Report struct {
				Table json.RawMessage `json:"table"`
			} `json:"report"`
		} `json:"reportData"`
	}
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding %s table for %s: %w", dataType, code, ErrMalformedPayload)
	}

	table := payload.ReportData.Report.Table
	if len(table) == 0 || string(table) == "null" {
		return nil, fmt.Errorf("%s table for %s fight %d: %w", dataType, code, fightID, ErrMalformedPayload)
	}
	return table, nil
}

// PlayerBoon looks up the mundus boon a player carried during a fight by
// scanning their buff table. An empty boon with a nil error means the
// fight exposed no detectable boon.
func (c *Client) PlayerBoon(ctx context.Context, code string, fightID, sourceID int, startTime, endTime int64) (string, error) {
	variables := map[string]any{
		"code":          code,
		"fightIDs":      []int{fightID},
		"startTime":     startTime,
		"endTime":       endTime,
		"dataType":      TableBuffs,
		"sourceID":      sourceID,
		"combatantInfo": false,
	}
	cacheKey := fmt.Sprintf("buffs_%s_%d_%d", code, fightID, sourceID)
	data, err := c.query(ctx, "player_boon", cacheKey, tableQuery, variables)
	if err != nil {
		return "", err
	}

	var payload struct {
		ReportData struct {
			Report struct {
				Table struct {
					Data struct {
						Auras []struct {
							Name string `json:"name"`
						} `json:"auras"`
					} `json:"data"`
				} `json:"table"`
			} `json:"report"`
		} `json:"reportData"`
	}
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decoding buffs for %s: %w", code, ErrMalformedPayload)
	}

	for _, aura := range payload.ReportData.Report.Table.Data.Auras {
		lower := strings.ToLower(aura.Name)
		if strings.Contains(lower, "boon") || strings.Contains(lower, "mundus") {
			return aura.Name, nil
		}
	}
	return "", nil
}
