package core

import (
	"context"

	"wellbeingcore/pkg/domain"
)

// SetReportStatus moves a report through its workflow. The first transition
// out of the received state stamps the school read timestamp if the report has
// not been opened yet. Invalid transitions are rejected at commit.
func (s *Service) SetReportStatus(ctx context.Context, reportID string, status domain.ReportStatus) (domain.IncidentReport, error) {
	var out domain.IncidentReport
	_, err := s.run(ctx, "set_report_status", func(tx domain.Transaction) error {
		now := tx.Now()
		r, err := tx.UpdateIncidentReport(reportID, func(r *domain.IncidentReport) error {
			if r.ReadAtBySchool == nil && status != domain.ReportReceived {
				r.ReadAtBySchool = &now
			}
			r.Status = status
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// ResolveReport closes a report with the required closure note and stamps the
// closed-at timestamp.
func (s *Service) ResolveReport(ctx context.Context, reportID, closureNote string) (domain.IncidentReport, error) {
	var out domain.IncidentReport
	_, err := s.run(ctx, "resolve_report", func(tx domain.Transaction) error {
		now := tx.Now()
		r, err := tx.UpdateIncidentReport(reportID, func(r *domain.IncidentReport) error {
			if r.ReadAtBySchool == nil {
				r.ReadAtBySchool = &now
			}
			r.Status = domain.ReportResolved
			r.ClosedAt = &now
			r.ClosureNote = closureNote
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// ReopenReport moves a resolved report back to reviewing. Closure metadata is
// kept so the prior resolution stays auditable.
func (s *Service) ReopenReport(ctx context.Context, reportID string) (domain.IncidentReport, error) {
	var out domain.IncidentReport
	_, err := s.run(ctx, "reopen_report", func(tx domain.Transaction) error {
		r, err := tx.UpdateIncidentReport(reportID, func(r *domain.IncidentReport) error {
			r.Status = domain.ReportReviewing
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// MarkReportRead stamps the school read timestamp without a status change.
// Re-reading keeps the original stamp.
func (s *Service) MarkReportRead(ctx context.Context, reportID string) (domain.IncidentReport, error) {
	var out domain.IncidentReport
	_, err := s.run(ctx, "mark_report_read", func(tx domain.Transaction) error {
		now := tx.Now()
		r, err := tx.UpdateIncidentReport(reportID, func(r *domain.IncidentReport) error {
			if r.ReadAtBySchool == nil {
				r.ReadAtBySchool = &now
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}
