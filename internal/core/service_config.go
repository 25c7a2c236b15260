package core

import (
	"context"

	"wellbeingcore/pkg/domain"
)

// UpdateSchoolConfig replaces the live school configuration directly. Intended
// for the admin role; other roles go through the request workflow.
func (s *Service) UpdateSchoolConfig(ctx context.Context, cfg domain.SchoolConfig) (domain.SchoolConfig, error) {
	var out domain.SchoolConfig
	_, err := s.run(ctx, "update_school_config", func(tx domain.Transaction) error {
		out = tx.SetSchoolConfig(cfg)
		return nil
	})
	return out, err
}

// SubmitConfigRequest files a pending configuration change request.
func (s *Service) SubmitConfigRequest(ctx context.Context, requestedBy domain.Role, cfg domain.SchoolConfig) (domain.SchoolConfigRequest, error) {
	var out domain.SchoolConfigRequest
	_, err := s.run(ctx, "submit_config_request", func(tx domain.Transaction) error {
		r, err := tx.CreateConfigRequest(domain.SchoolConfigRequest{
			RequestedBy: requestedBy,
			Config:      cfg,
		})
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// ApproveConfigRequest marks the request approved and copies its configuration
// into the live config in the same transaction.
func (s *Service) ApproveConfigRequest(ctx context.Context, requestID, note string) (domain.SchoolConfigRequest, error) {
	var out domain.SchoolConfigRequest
	_, err := s.run(ctx, "approve_config_request", func(tx domain.Transaction) error {
		now := tx.Now()
		r, err := tx.UpdateConfigRequest(requestID, func(r *domain.SchoolConfigRequest) error {
			r.Status = domain.ConfigRequestApproved
			r.DecidedAt = &now
			r.DecisionNote = note
			return nil
		})
		if err != nil {
			return err
		}
		tx.SetSchoolConfig(r.Config)
		out = r
		return nil
	})
	return out, err
}

// RejectConfigRequest marks the request rejected. The live config is untouched.
func (s *Service) RejectConfigRequest(ctx context.Context, requestID, note string) (domain.SchoolConfigRequest, error) {
	var out domain.SchoolConfigRequest
	_, err := s.run(ctx, "reject_config_request", func(tx domain.Transaction) error {
		now := tx.Now()
		r, err := tx.UpdateConfigRequest(requestID, func(r *domain.SchoolConfigRequest) error {
			r.Status = domain.ConfigRequestRejected
			r.DecidedAt = &now
			r.DecisionNote = note
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

// SchoolConfig returns the live school configuration.
func (s *Service) SchoolConfig() domain.SchoolConfig { return s.store.SchoolConfig() }
