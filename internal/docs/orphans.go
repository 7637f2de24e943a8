package docs

import (
	"context"
	"fmt"
	"sort"
)

// OrphanReport describes disagreement between the content and metadata stores.
type OrphanReport struct {
	// UnreferencedContent lists stored objects that no record points to, e.g.
	// left behind by a crash between byte write and metadata append.
	UnreferencedContent []string
	// MissingContent lists records whose object no longer exists.
	MissingContent []*FileRecord
}

// FindOrphans compares the content store against the metadata store.
func (s *DocService) FindOrphans(ctx context.Context) (*OrphanReport, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	names, err := s.content.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}

	stored := make(map[string]struct{}, len(names))
	for _, n := range names {
		stored[n] = struct{}{}
	}
	referenced := make(map[string]struct{}, len(records))

	report := &OrphanReport{}
	for _, rec := range records {
		referenced[rec.ID] = struct{}{}
		if _, ok := stored[rec.ID]; !ok {
			report.MissingContent = append(report.MissingContent, rec)
		}
	}
	for _, n := range names {
		if _, ok := referenced[n]; !ok {
			report.UnreferencedContent = append(report.UnreferencedContent, n)
		}
	}
	sort.Strings(report.UnreferencedContent)
	return report, nil
}

// RemoveOrphans deletes every unreferenced content object and returns the
// names it removed. Records with missing content are left untouched.
func (s *DocService) RemoveOrphans(ctx context.Context) ([]string, error) {
	report, err := s.FindOrphans(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, name := range report.UnreferencedContent {
		if err := s.content.Remove(ctx, name); err != nil {
			return removed, fmt.Errorf("removing orphan %s: %w", name, err)
		}
		removed = append(removed, name)
		s.logger.Info("orphan removed", "name", name)
	}
	return removed, nil
}
