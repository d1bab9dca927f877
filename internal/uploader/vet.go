package uploader

import (
	"context"
	"fmt"
	"strconv"

	"labelsheet/internal/logging"
	"labelsheet/internal/services"
)

// maxVetAttempts bounds the rename-and-recheck loop for duplicate global
// keys.
const maxVetAttempts = 5

// vetGlobalKeys reconciles the plan's global keys against the platform. Keys
// held by deleted data rows are released. Keys attached to active rows are
// either reused (skip_duplicates) or renamed with a numeric suffix and
// rechecked until every key is free.
func (u *Uploader) vetGlobalKeys(ctx context.Context, plan *Plan, result *Result) error {
	keys := plan.GlobalKeys()
	if len(keys) == 0 {
		return nil
	}
	byKey := make(map[string]*Row, len(plan.Rows))
	origin := make(map[string]string, len(plan.Rows))
	for _, row := range plan.Rows {
		byKey[row.GlobalKey] = row
		origin[row.GlobalKey] = row.GlobalKey
	}

	for attempt := 1; attempt <= maxVetAttempts; attempt++ {
		report, err := u.api.CheckGlobalKeys(ctx, keys)
		if err != nil {
			return err
		}

		if len(report.Deleted) > 0 {
			u.logger.Info("releasing global keys held by deleted data rows",
				logging.Args(logging.Int(logging.FieldCount, len(report.Deleted)))...)
			if err := u.api.ClearGlobalKeys(ctx, report.Deleted); err != nil {
				return err
			}
		}
		deleted := make(map[string]struct{}, len(report.Deleted))
		for _, key := range report.Deleted {
			deleted[key] = struct{}{}
		}

		var duplicates []string
		for i, fetched := range report.Fetched {
			if i >= len(keys) || fetched == "" {
				continue
			}
			if _, ok := deleted[keys[i]]; ok {
				continue
			}
			duplicates = append(duplicates, keys[i])
		}
		if len(duplicates) == 0 {
			return nil
		}

		if u.cfg.Upload.SkipDuplicates {
			for _, key := range duplicates {
				byKey[key].Existing = true
			}
			result.DataRowsExisting += len(duplicates)
			u.logger.Info("reusing existing data rows for duplicate global keys",
				logging.Args(logging.Int(logging.FieldCount, len(duplicates)))...)
			return nil
		}

		keys = keys[:0]
		for _, key := range duplicates {
			row := byKey[key]
			renamed := origin[key] + u.cfg.Upload.SuffixDivider + strconv.Itoa(attempt)
			delete(byKey, key)
			base := origin[key]
			delete(origin, key)
			row.GlobalKey = renamed
			byKey[renamed] = row
			origin[renamed] = base
			keys = append(keys, renamed)
		}
		u.logger.Info("renamed duplicate global keys",
			logging.Args(
				logging.Int(logging.FieldCount, len(keys)),
				logging.Int("attempt", attempt),
			)...)
	}

	return services.Wrap(services.ErrValidation, "vet", "global-keys",
		fmt.Sprintf("%d global keys still collide after %d rename attempts", len(keys), maxVetAttempts), nil)
}
