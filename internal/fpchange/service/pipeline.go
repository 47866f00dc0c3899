package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"accai/internal/fpchange/metrics"
	"accai/internal/fpchange/models"
	"accai/internal/fpchange/parser"
	"accai/internal/fpchange/validator"
)

// Whole-file messages.
const (
	msgBadExtension = "Extensión inválida. Solo se aceptan archivos .csv."
	msgEmptyFile    = "Archivo vacío."
	msgUnreadable   = "No se pudo leer el archivo."
)

// productGroup is the set of rows sharing a product code, in file order.
type productGroup struct {
	product string
	rows    []models.NumberedRow
}

// run executes the pipeline. fileErr reports a whole-file rejection.
func (s *Service) run(ctx context.Context, log *slog.Logger, up Upload, cid string) (report *models.Report, fileErr bool, err error) {
	if msg := s.checkFile(up); msg != "" {
		return s.rejectFile(ctx, log, msg, cid), true, nil
	}

	parsed, err := parser.Parse(ctx, up.File)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		log.WarnContext(ctx, "fp_csv_read_failed", "error", err)
		return s.rejectFile(ctx, log, msgUnreadable, cid), true, nil
	}

	if !slices.Equal(parsed.Header, models.ExpectedHeader) {
		msg := fmt.Sprintf("Cabeceras inválidas. Esperado: %s. Recibido: %s",
			strings.Join(models.ExpectedHeader, ","), strings.Join(parsed.Header, ","))
		return s.rejectFile(ctx, log, msg, cid), true, nil
	}

	if len(parsed.Rows) > s.maxRows {
		msg := fmt.Sprintf("Máximo %d registros por archivo.", s.maxRows)
		return s.rejectFile(ctx, log, msg, cid), true, nil
	}

	rowErrs, valid := s.validateRows(ctx, log, parsed.Rows)
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	groupErrs, err := s.dispatchGroups(ctx, log, s.groupByProduct(ctx, log, valid))
	if err != nil {
		return nil, false, err
	}
	rowErrs = append(rowErrs, groupErrs...)

	report = models.NewReport(len(parsed.Rows), rowErrs, cid)
	if report.OK() {
		log.InfoContext(ctx, "fp_csv_validated", "total_rows", report.TotalRows)
	} else {
		log.InfoContext(ctx, "fp_csv_validated",
			"total_rows", report.TotalRows,
			"error_count", report.ErrorCount,
		)
	}
	return report, false, nil
}

// checkFile applies the extension and size checks. An upload without a
// file at all is reported as empty.
func (s *Service) checkFile(up Upload) string {
	if up.File == nil {
		return msgEmptyFile
	}
	if !strings.EqualFold(filepath.Ext(up.FileName), ".csv") {
		return msgBadExtension
	}
	if up.Size <= 0 {
		return msgEmptyFile
	}
	if up.Size > s.maxBytes {
		return fmt.Sprintf("Tamaño máximo %s.", formatBytes(s.maxBytes))
	}
	return ""
}

func (s *Service) rejectFile(ctx context.Context, log *slog.Logger, msg, cid string) *models.Report {
	log.WarnContext(ctx, "fp_csv_file_rejected", "reason", msg)
	s.metrics.IncError("file")
	return models.FileFailure(msg, cid)
}

// validateRows checks every row and returns the errors plus the rows that passed.
func (s *Service) validateRows(ctx context.Context, log *slog.Logger, rows []models.NumberedRow) ([]models.RowError, []models.NumberedRow) {
	var errs []models.RowError
	valid := make([]models.NumberedRow, 0, len(rows))
	for _, nr := range rows {
		violations := validator.Validate(nr.Row)
		if len(violations) == 0 {
			valid = append(valid, nr)
			continue
		}
		for _, v := range violations {
			raw, _ := nr.Row.Value(v.Field)
			errs = append(errs, models.NewRowError(nr.Line, v.Field, v.Message, raw))
			log.WarnContext(ctx, "fp_csv_row_invalid",
				"line", nr.Line,
				"field", v.Field,
				"message", v.Message,
			)
			s.metrics.IncError("validation")
		}
	}
	s.metrics.AddRows(metrics.RowValid, len(valid))
	s.metrics.AddRows(metrics.RowInvalid, len(rows)-len(valid))
	return errs, valid
}

// groupByProduct drops rows whose product is not allowed and groups the rest
// by product code, keeping first-seen group order.
func (s *Service) groupByProduct(ctx context.Context, log *slog.Logger, rows []models.NumberedRow) []productGroup {
	var groups []productGroup
	index := make(map[string]int)
	skipped := 0
	for _, nr := range rows {
		product := normalizeProduct(nr.Row.Product)
		if _, ok := s.allowed[product]; !ok {
			skipped++
			log.InfoContext(ctx, "fp_csv_row_skipped", "line", nr.Line, "product", nr.Row.Product)
			continue
		}
		i, ok := index[product]
		if !ok {
			i = len(groups)
			index[product] = i
			groups = append(groups, productGroup{product: product})
		}
		groups[i].rows = append(groups[i].rows, nr)
	}
	s.metrics.AddRows(metrics.RowSkipped, skipped)
	return groups
}

// dispatchGroups processes product groups concurrently. Each group writes
// only its own slot; slots are merged after the join.
func (s *Service) dispatchGroups(ctx context.Context, log *slog.Logger, groups []productGroup) ([]models.RowError, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	results := make([][]models.RowError, len(groups))

	var g errgroup.Group
	for i, grp := range groups {
		g.Go(func() error {
			errs, err := s.processGroup(ctx, log, grp)
			if err != nil {
				return err
			}
			results[i] = errs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []models.RowError
	for _, errs := range results {
		merged = append(merged, errs...)
	}
	return merged, nil
}

// formatBytes renders a byte limit the way users read it ("1MB").
func formatBytes(n int64) string {
	switch {
	case n >= 1_000_000 && n%1_000_000 == 0:
		return fmt.Sprintf("%dMB", n/1_000_000)
	case n >= 1_000 && n%1_000 == 0:
		return fmt.Sprintf("%dKB", n/1_000)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
