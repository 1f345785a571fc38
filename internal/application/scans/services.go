package scans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/automaton-store/internal/application"
	"github.com/bryanwahyu/automaton-store/internal/domain/agents"
	"github.com/bryanwahyu/automaton-store/internal/domain/assets"
	domain "github.com/bryanwahyu/automaton-store/internal/domain/scans"
	"github.com/bryanwahyu/automaton-store/internal/domain/vulnerabilities"
	"github.com/bryanwahyu/automaton-store/internal/infra/db"
)

// ErrInvalidCommand is returned when a command is missing required fields.
var ErrInvalidCommand = errors.New("invalid command")

// Service implements use-cases untuk Scan on top of the store.
// Safe for concurrent use; the store serializes writers.
type Service struct {
	Store *db.Store
	Clock application.Clock
	Log   *logrus.Logger
}

func NewService(store *db.Store, clock application.Clock, log *logrus.Logger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{Store: store, Clock: clock, Log: log}
}

//
// ==== USE CASES ====
//

// RegisterScanCommand describes a scan as the command line prepares it: the
// agent group to run and the assets to scan, already validated.
type RegisterScanCommand struct {
	Title      string
	AssetLabel string
	Group      *agents.GroupDefinition
	Assets     []assets.Definition
}

type RegisterScanResult struct {
	Scan   *domain.Scan   `json:"scan"`
	Group  *agents.Group  `json:"agent_group,omitempty"`
	Assets []assets.Asset `json:"assets"`
}

// RegisterScan stores the scan, its agent group and its assets in one
// transaction: either everything is recorded or nothing is.
func (s *Service) RegisterScan(ctx context.Context, cmd RegisterScanCommand) (RegisterScanResult, error) {
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return RegisterScanResult{}, fmt.Errorf("%w: title is required", ErrInvalidCommand)
	}
	var label *string
	if cmd.AssetLabel != "" {
		label = &cmd.AssetLabel
	}

	var res RegisterScanResult
	err := s.Store.WithSession(ctx, func(sess *db.Session) error {
		scan, err := sess.Scans().Create(ctx, domain.NewScan{Title: title, Asset: label, CreatedTime: s.Clock.Now()})
		if err != nil {
			return err
		}
		if cmd.Group != nil {
			group, err := sess.AgentGroups().CreateFromDefinition(ctx, *cmd.Group)
			if err != nil {
				return err
			}
			if err := sess.Scans().SetAgentGroup(ctx, scan.ID, group.ID); err != nil {
				return err
			}
			scan.AgentGroupID = &group.ID
			res.Group = group
		}
		created, err := sess.Assets().CreateFromDefinitions(ctx, &scan.ID, cmd.Assets)
		if err != nil {
			return err
		}
		res.Scan = scan
		res.Assets = created
		return nil
	})
	if err != nil {
		s.Log.WithError(err).WithField("title", title).Error("register scan failed")
		return RegisterScanResult{}, err
	}

	s.Log.WithFields(logrus.Fields{
		"scan_id": res.Scan.ID,
		"assets":  len(res.Assets),
	}).Info("scan registered")
	return res, nil
}

// MarkProgress → update progress scan (NOT_STARTED, IN_PROGRESS, DONE, STOPPED, ERROR)
func (s *Service) MarkProgress(ctx context.Context, id domain.ScanID, progress string) error {
	p, err := domain.ParseProgress(progress)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if err := s.Store.Scans().UpdateProgress(ctx, id, p); err != nil {
		return err
	}
	s.Log.WithFields(logrus.Fields{"scan_id": id, "progress": p}).Debug("scan progress updated")
	return nil
}

// RecordStatus appends an entry to the status history of a scan.
func (s *Service) RecordStatus(ctx context.Context, id domain.ScanID, key, value string) (*domain.Status, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: status key is required", ErrInvalidCommand)
	}
	return s.Store.ScanStatuses().Create(ctx, key, value, id)
}

// RecordVulnerability stores a finding reported by an agent.
func (s *Service) RecordVulnerability(ctx context.Context, nv vulnerabilities.NewVulnerability) (*vulnerabilities.Vulnerability, error) {
	v, err := s.Store.Vulnerabilities().Create(ctx, nv)
	if err != nil {
		return nil, err
	}
	s.Log.WithFields(logrus.Fields{
		"scan_id":     v.ScanID,
		"risk_rating": v.RiskRating,
	}).Info("vulnerability recorded")
	return v, nil
}

// Summary is the overview of one scan.
type Summary struct {
	Scan            *domain.Scan                       `json:"scan"`
	LatestStatus    *domain.Status                     `json:"latest_status,omitempty"`
	Risks           map[vulnerabilities.RiskRating]int `json:"risks"`
	Vulnerabilities int                                `json:"vulnerabilities"`
	HighestRisk     vulnerabilities.RiskRating         `json:"highest_risk,omitempty"`
}

// Summary reads the scan, its last status and its findings per risk in one
// consistent snapshot.
func (s *Service) Summary(ctx context.Context, id domain.ScanID) (Summary, error) {
	var out Summary
	err := s.Store.WithSession(ctx, func(sess *db.Session) error {
		scan, err := sess.Scans().Get(ctx, id)
		if err != nil {
			return err
		}
		statuses, err := sess.ScanStatuses().ListByScan(ctx, id)
		if err != nil {
			return err
		}
		risks, err := sess.Vulnerabilities().CountByRisk(ctx, id)
		if err != nil {
			return err
		}
		out.Scan = scan
		if len(statuses) > 0 {
			out.LatestStatus = statuses[len(statuses)-1]
		}
		out.Risks = risks
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	for rating, n := range out.Risks {
		out.Vulnerabilities += n
		if out.HighestRisk == "" || out.HighestRisk.Less(rating) {
			out.HighestRisk = rating
		}
	}
	return out, nil
}
