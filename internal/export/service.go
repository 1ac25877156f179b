// Package export orchestrates the company export pipeline: filter
// validation, company search, sequential per-company officer retrieval, and
// CSV assembly.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dgrantham/chexport/internal/logging"
	"github.com/dgrantham/chexport/internal/registry"
)

// progressEvery is how many companies are processed between progress logs.
const progressEvery = 10

// Registry is the slice of the registry client the service depends on.
type Registry interface {
	SearchCompanies(ctx context.Context, f registry.SearchFilter) ([]registry.CompanyRecord, error)
	CompanyOfficers(ctx context.Context, companyNumber string) ([]registry.OfficerRecord, error)
}

// Service runs exports against a registry client.
type Service struct {
	registry Registry
	now      func() time.Time
}

// NewService creates an export service.
func NewService(reg Registry) *Service {
	return &Service{
		registry: reg,
		now:      time.Now,
	}
}

// Result is a finished export: the suggested download filename and the CSV
// document bytes.
type Result struct {
	Filename  string
	Companies int
	Rows      int
	Data      []byte
}

// Export runs the full pipeline for one filter set.
//
// Companies are processed one at a time and officer pages sequentially
// within each company; the context is consulted between companies so a
// caller abort stops the export promptly. Officer-fetch failures degrade to
// a company with no officers rather than failing the export.
//
// Errors: ErrNoFilters, ErrNoCompanies, registry.ErrAdvancedUnsupported,
// registry.ErrNoAPIKey, or a context error.
func (s *Service) Export(ctx context.Context, f registry.SearchFilter) (*Result, error) {
	if f.Empty() {
		return nil, ErrNoFilters
	}

	exportID := uuid.NewString()
	logger := logging.WithFields(ctx, "export_id", exportID)
	logger.Info("export started", "mode", registry.ModeFor(f).String())

	companies, err := s.registry.SearchCompanies(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, ErrNoCompanies
	}
	logger.Info("company search complete", "companies", len(companies))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	rows := 0
	for i, company := range companies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		officers, err := s.registry.CompanyOfficers(ctx, company.CompanyNumber)
		if err != nil {
			return nil, err
		}

		if len(officers) == 0 {
			if err := w.Write(Row(company, nil)); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
			rows++
		} else {
			for j := range officers {
				if err := w.Write(Row(company, &officers[j])); err != nil {
					return nil, fmt.Errorf("write csv row: %w", err)
				}
				rows++
			}
		}

		if (i+1)%progressEvery == 0 {
			logger.Info("export progress", "processed", i+1, "total", len(companies))
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	result := &Result{
		Filename:  s.filename(),
		Companies: len(companies),
		Rows:      rows,
		Data:      buf.Bytes(),
	}
	logger.Info("export complete", "companies", result.Companies, "rows", result.Rows, "bytes", len(result.Data))
	return result, nil
}

// filename builds the download name, e.g. companies_export_20240131_142302.csv.
func (s *Service) filename() string {
	return "companies_export_" + s.now().UTC().Format("20060102_150405") + ".csv"
}
