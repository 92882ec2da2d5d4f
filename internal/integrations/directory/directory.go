package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/config"
	"github.com/Dan9191/commission-scheduler/internal/models"
)

const (
	SourcePharmacies = "pharmacy-directory"
	SourceVendors    = "vendor-directory"
	SourceDoctors    = "doctor-directory"
	SourceLedger     = "commission-ledger"

	doctorStatus = "approved"
)

// Client resolves schedule candidates from the pharmacy, vendor and doctor
// directories and annotates them with pending amounts from the commission ledger.
// It holds no state between calls.
type Client struct {
	pharmacyURL   string
	vendorURL     string
	doctorURL     string
	ledger        *LedgerClient
	client        *http.Client
	timeout       time.Duration
	retries       uint64
	retryInterval time.Duration
	log           *logrus.Logger
}

// NewClient initializes a directory client from configuration
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	httpClient := &http.Client{}
	return &Client{
		pharmacyURL:   cfg.PharmacyDirectoryURL,
		vendorURL:     cfg.VendorDirectoryURL,
		doctorURL:     cfg.DoctorDirectoryURL,
		ledger:        NewLedgerClient(cfg.CommissionLedgerURL, httpClient, log),
		client:        httpClient,
		timeout:       cfg.UpstreamTimeout,
		retries:       cfg.UpstreamRetries,
		retryInterval: 100 * time.Millisecond,
		log:           log,
	}
}

type rosterSource struct {
	name  string
	fetch func(c *Client, ctx context.Context) ([]models.Entity, error)
}

var rosterSources = map[models.EntityType]rosterSource{
	models.EntityPharmacy: {name: SourcePharmacies, fetch: (*Client).listPharmacies},
	models.EntityVendor:   {name: SourceVendors, fetch: (*Client).listVendors},
	models.EntityDoctor:   {name: SourceDoctors, fetch: (*Client).listDoctors},
}

// ListCandidates returns the current roster for entityType with pending amounts.
// Any upstream failure fails the whole call with an *apperror.UpstreamError.
func (c *Client) ListCandidates(ctx context.Context, entityType models.EntityType) ([]models.Entity, error) {
	src, ok := rosterSources[entityType]
	if !ok {
		return nil, apperror.Invalid("unknown entity type %q", entityType)
	}

	var entities []models.Entity
	err := c.call(ctx, src.name, func(ctx context.Context) error {
		var err error
		entities, err = src.fetch(c, ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var pending map[string]decimal.Decimal
	err = c.call(ctx, SourceLedger, func(ctx context.Context) error {
		var err error
		pending, err = c.ledger.PendingAmounts(ctx, entityType)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i := range entities {
		entities[i].Type = entityType
		if amount, ok := pending[entities[i].ID]; ok {
			entities[i].PendingAmount = amount
		}
	}
	return entities, nil
}

// CandidateSet is the result of resolving every entity type at once.
// Types whose source failed appear in Errors and not in Entities.
type CandidateSet struct {
	Entities map[models.EntityType][]models.Entity
	Errors   map[models.EntityType]error
}

// ListAllCandidates resolves every entity type concurrently. A failing or slow
// source only affects its own type.
func (c *Client) ListAllCandidates(ctx context.Context) CandidateSet {
	set := CandidateSet{
		Entities: make(map[models.EntityType][]models.Entity),
		Errors:   make(map[models.EntityType]error),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, entityType := range models.EntityTypes {
		wg.Add(1)
		go func(entityType models.EntityType) {
			defer wg.Done()
			entities, err := c.ListCandidates(ctx, entityType)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				set.Errors[entityType] = err
				return
			}
			set.Entities[entityType] = entities
		}(entityType)
	}
	wg.Wait()
	return set
}

// call runs fn under the per-source timeout, retrying transient failures
func (c *Client) call(ctx context.Context, source string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx)

	err := backoff.RetryNotify(func() error { return fn(ctx) }, policy, func(err error, wait time.Duration) {
		c.log.Debugf("Retrying %s in %s: %v", source, wait, err)
	})
	if err != nil {
		c.log.Warnf("Upstream %s unavailable: %v", source, err)
		return apperror.NewUpstreamError(source, err)
	}
	return nil
}

type pharmacyRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CityName string `json:"cityName"`
}

type doctorRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

func (c *Client) listPharmacies(ctx context.Context) ([]models.Entity, error) {
	var records []pharmacyRecord
	if err := c.getJSON(ctx, c.pharmacyURL+"/pharmacies", &records); err != nil {
		return nil, err
	}
	entities := make([]models.Entity, 0, len(records))
	for _, r := range records {
		entities = append(entities, models.Entity{ID: r.ID, Name: r.Name, Label: r.CityName})
	}
	return entities, nil
}

func (c *Client) listVendors(ctx context.Context) ([]models.Entity, error) {
	var records []pharmacyRecord
	if err := c.getJSON(ctx, c.vendorURL+"/vendors", &records); err != nil {
		return nil, err
	}
	entities := make([]models.Entity, 0, len(records))
	for _, r := range records {
		entities = append(entities, models.Entity{ID: r.ID, Name: r.Name, Label: r.CityName})
	}
	return entities, nil
}

func (c *Client) listDoctors(ctx context.Context) ([]models.Entity, error) {
	var records []doctorRecord
	if err := c.getJSON(ctx, c.doctorURL+"/doctors?status="+doctorStatus, &records); err != nil {
		return nil, err
	}
	entities := make([]models.Entity, 0, len(records))
	for _, r := range records {
		entities = append(entities, models.Entity{ID: r.ID, Name: r.Name, Label: r.Specialization})
	}
	return entities, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// checkStatus treats 5xx as retryable and everything else non-2xx as permanent
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, body)
	if resp.StatusCode >= 500 {
		return err
	}
	return backoff.Permanent(err)
}

var errNoPendingData = errors.New("no pending commission data found in XML")
