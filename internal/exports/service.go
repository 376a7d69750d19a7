package exports

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/angelmondragon/moneypilot-backend/internal/accounts"
	"github.com/angelmondragon/moneypilot-backend/internal/rollups"
	"github.com/angelmondragon/moneypilot-backend/internal/rules"
	"github.com/angelmondragon/moneypilot-backend/internal/subscriptions"
	"github.com/angelmondragon/moneypilot-backend/internal/transactions"
	"github.com/angelmondragon/moneypilot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moneypilot-backend/pkg/errors"
	"github.com/angelmondragon/moneypilot-backend/pkg/logger"
)

const (
	defaultPrefix   = "exports"
	zipContentType  = "application/zip"
	objectTimestamp = "20060102T150405Z"
)

// Uploader stores an object and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
}

// TransactionSource lists a tenant's transactions.
type TransactionSource interface {
	ListByTenant(ctx context.Context, tenantID string, filter transactions.ListFilter) ([]models.Transaction, error)
}

// AccountSource lists a tenant's accounts.
type AccountSource interface {
	List(ctx context.Context, tenantID string) ([]models.Account, error)
}

// RuleSource lists a tenant's rules.
type RuleSource interface {
	List(ctx context.Context, tenantID string) ([]models.Rule, error)
}

// CandidateSource lists a tenant's subscription candidates.
type CandidateSource interface {
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.SubscriptionCandidate, error)
}

// RollupSource lists a tenant's category rollups.
type RollupSource interface {
	ListByTenant(ctx context.Context, tenantID string) ([]models.CategoryRollup, error)
}

// Dataset names one file of the archive.
type Dataset struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Manifest describes an export archive.
type Manifest struct {
	TenantID    string    `json:"tenant_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Datasets    []Dataset `json:"datasets"`
}

// Result is returned after a successful upload.
type Result struct {
	URI      string   `json:"uri"`
	Object   string   `json:"object"`
	Bytes    int      `json:"bytes"`
	Manifest Manifest `json:"manifest"`
}

// Service builds and uploads full tenant exports.
type Service interface {
	Export(ctx context.Context, tenantID string) (*Result, error)
}

// ServiceParams wires the export service. Logger and Clock are optional.
type ServiceParams struct {
	Uploader      Uploader
	Prefix        string
	Transactions  TransactionSource
	Accounts      AccountSource
	Rules         RuleSource
	Subscriptions CandidateSource
	Rollups       RollupSource
	Logger        *logger.Logger
	Clock         func() time.Time
}

type service struct {
	uploader      Uploader
	prefix        string
	transactions  TransactionSource
	accounts      AccountSource
	rules         RuleSource
	subscriptions CandidateSource
	rollups       RollupSource
	logg          *logger.Logger
	now           func() time.Time
}

// NewService builds the export service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Uploader == nil:
		return nil, fmt.Errorf("uploader required")
	case params.Transactions == nil, params.Accounts == nil, params.Rules == nil, params.Subscriptions == nil, params.Rollups == nil:
		return nil, fmt.Errorf("transaction, account, rule, subscription and rollup sources are required")
	}
	prefix := strings.Trim(strings.TrimSpace(params.Prefix), "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		uploader:      params.Uploader,
		prefix:        prefix,
		transactions:  params.Transactions,
		accounts:      params.Accounts,
		rules:         params.Rules,
		subscriptions: params.Subscriptions,
		rollups:       params.Rollups,
		logg:          params.Logger,
		now:           now,
	}, nil
}

type dataset struct {
	name    string
	count   int
	payload any
}

func (s *service) Export(ctx context.Context, tenantID string) (*Result, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}

	datasets, err := s.collect(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	manifest := Manifest{TenantID: tenantID, GeneratedAt: generatedAt}
	for _, ds := range datasets {
		manifest.Datasets = append(manifest.Datasets, Dataset{Name: ds.name, Count: ds.count})
	}

	archive, err := buildArchive(datasets, manifest)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build export archive")
	}

	object := ObjectName(s.prefix, tenantID, generatedAt)
	uri, err := s.uploader.Upload(ctx, object, zipContentType, bytes.NewReader(archive))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload export").
			WithDetails(map[string]any{"object": object})
	}

	if s.logg != nil {
		logCtx := s.logg.WithTenantID(ctx, tenantID)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"uri":   uri,
			"bytes": len(archive),
		}), "exports.full.completed")
	}
	return &Result{URI: uri, Object: object, Bytes: len(archive), Manifest: manifest}, nil
}

func (s *service) collect(ctx context.Context, tenantID string) ([]dataset, error) {
	accountRows, err := s.accounts.List(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accounts")
	}
	txns, err := s.transactions.ListByTenant(ctx, tenantID, transactions.ListFilter{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	ruleRows, err := s.rules.List(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}
	candidates, err := s.subscriptions.ListByTenant(ctx, tenantID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	rollupRows, err := s.rollups.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rollups")
	}

	return []dataset{
		{name: "accounts.json", count: len(accountRows), payload: accounts.NewAccountDTOs(accountRows)},
		{name: "transactions.json", count: len(txns), payload: transactions.NewTransactionDTOs(txns)},
		{name: "rules.json", count: len(ruleRows), payload: rules.NewRuleDTOs(ruleRows)},
		{name: "subscriptions.json", count: len(candidates), payload: subscriptions.NewCandidateDTOs(candidates)},
		{name: "rollups.json", count: len(rollupRows), payload: rollups.NewRollupDTOs(rollupRows)},
	}, nil
}

func buildArchive(datasets []dataset, manifest Manifest) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name string, payload any) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: manifest.GeneratedAt,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		return nil
	}
	for _, ds := range datasets {
		if err := write(ds.name, ds.payload); err != nil {
			return nil, err
		}
	}
	if err := write("manifest.json", manifest); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ObjectName returns <prefix>/<tenant>/export_<yyyymmddThhmmssZ>.zip.
func ObjectName(prefix, tenantID string, at time.Time) string {
	return path.Join(prefix, tenantID, "export_"+at.UTC().Format(objectTimestamp)+".zip")
}
