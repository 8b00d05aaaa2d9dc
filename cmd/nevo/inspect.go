// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"

	"github.com/blinklabs-io/nevo/database"
	"github.com/blinklabs-io/nevo/internal/config"
	"github.com/blinklabs-io/nevo/ledger"
	"github.com/blinklabs-io/nevo/ledger/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errReadOnly = errors.New("ledger opened read-only")

// readOnlyAccess rejects every authorization and transfer so that inspect
// commands can never change the ledger
type readOnlyAccess struct{}

func (readOnlyAccess) RequireAuth(context.Context, common.Address) error {
	return errReadOnly
}

func (readOnlyAccess) Transfer(
	context.Context,
	common.Address, common.Address, common.Address,
	common.Amount,
) error {
	return errReadOnly
}

func (readOnlyAccess) Balance(
	context.Context,
	common.Address, common.Address,
) (common.Amount, error) {
	return common.Amount{}, nil
}

func ledgerVersion() string {
	return common.ContractVersion
}

type inspector struct {
	ls       *ledger.LedgerState
	db       *database.Database
	registry *prometheus.Registry
	shutdown func(context.Context) error
	out      io.Writer
}

func openInspector(cmd *cobra.Command) (*inspector, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	logger := commonRun()
	shutdown, err := setupTracing(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure tracing: %w", err)
	}
	dataDir := cfg.DatabasePath
	flagName := fmt.Sprintf("storage-%s-data-dir", cfg.StoragePlugin)
	if f := cmd.Flags().Lookup(flagName); f != nil && f.Changed {
		dataDir = f.Value.String()
	}
	ret := &inspector{
		shutdown: shutdown,
		out:      cmd.OutOrStdout(),
	}
	var promRegistry prometheus.Registerer
	if cfg.MetricsEnabled {
		ret.registry = prometheus.NewRegistry()
		promRegistry = ret.registry
	}
	db, err := database.New(&database.Config{
		DataDir:       dataDir,
		StoragePlugin: cfg.StoragePlugin,
		Logger:        logger,
		PromRegistry:  promRegistry,
	})
	if err != nil {
		_ = shutdown(cmd.Context())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	ret.db = db
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Logger:          logger,
		Database:        db,
		PromRegistry:    promRegistry,
		Authorizer:      readOnlyAccess{},
		TokenClient:     readOnlyAccess{},
		ContractAddress: common.Address(cfg.ContractAddress),
	})
	if err != nil {
		ret.close(cmd.Context())
		return nil, err
	}
	ret.ls = ls
	return ret, nil
}

func (i *inspector) close(ctx context.Context) {
	if i.registry != nil {
		if err := i.dumpMetrics(); err != nil {
			slog.Warn("failed to write metrics", "component", programName, "error", err)
		}
	}
	if err := i.db.Close(); err != nil {
		slog.Warn("failed to close database", "component", programName, "error", err)
	}
	if err := i.shutdown(ctx); err != nil {
		slog.Warn("failed to flush traces", "component", programName, "error", err)
	}
}

// dumpMetrics writes the gathered metrics to stderr in the prometheus text format
func (i *inspector) dumpMetrics() error {
	families, err := i.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(
		os.Stderr,
		expfmt.NewFormat(expfmt.TypeTextPlain),
	)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func (i *inspector) print(v any) error {
	enc := yaml.NewEncoder(i.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// runInspect wraps an inspect subcommand with opening and closing the ledger
func runInspect(
	fn func(ctx context.Context, i *inspector, args []string) (any, error),
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		i, err := openInspector(cmd)
		if err != nil {
			return err
		}
		defer i.close(cmd.Context())
		ret, err := fn(cmd.Context(), i, args)
		if err != nil {
			return err
		}
		return i.print(ret)
	}
}

func inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print ledger state as YAML",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "campaign <id>",
			Short: "Show a campaign by its hex encoded ID",
			Args:  cobra.ExactArgs(1),
			RunE:  runInspect(inspectCampaign),
		},
		&cobra.Command{
			Use:   "campaigns",
			Short: "List all campaigns and their status",
			Args:  cobra.NoArgs,
			RunE:  runInspect(inspectCampaigns),
		},
		&cobra.Command{
			Use:   "pool <id>",
			Short: "Show a pool, its contributions and its signers",
			Args:  cobra.ExactArgs(1),
			RunE:  runInspect(inspectPool),
		},
		&cobra.Command{
			Use:   "pools",
			Short: "List all pools and their state",
			Args:  cobra.NoArgs,
			RunE:  runInspect(inspectPools),
		},
		&cobra.Command{
			Use:   "admin",
			Short: "Show contract administration state",
			Args:  cobra.NoArgs,
			RunE:  runInspect(inspectAdmin),
		},
	)
	return cmd
}

type campaignMetricsView struct {
	TotalRaised      common.Amount  `yaml:"totalRaised"`
	ContributorCount uint32         `yaml:"contributorCount"`
	LastDonationAt   uint64         `yaml:"lastDonationAt"`
	MaxDonation      common.Amount  `yaml:"maxDonation"`
	TopContributor   common.Address `yaml:"topContributor,omitempty"`
}

type campaignView struct {
	ID          common.CampaignID   `yaml:"id"`
	Title       string              `yaml:"title"`
	Creator     common.Address      `yaml:"creator"`
	Status      string              `yaml:"status"`
	Goal        common.Amount       `yaml:"goal"`
	TotalRaised common.Amount       `yaml:"totalRaised"`
	Token       common.Address      `yaml:"token"`
	Deadline    uint64              `yaml:"deadline"`
	CreatedAt   uint64              `yaml:"createdAt"`
	FeesPaid    common.Amount       `yaml:"feesPaid"`
	Metrics     campaignMetricsView `yaml:"metrics"`
}

func inspectCampaign(ctx context.Context, i *inspector, args []string) (any, error) {
	id, err := common.NewCampaignIDFromHex(args[0])
	if err != nil {
		return nil, err
	}
	campaign, err := i.ls.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := i.ls.GetCampaignStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics, err := i.ls.GetCampaignMetrics(ctx, id)
	if err != nil {
		return nil, err
	}
	fees, err := i.ls.GetCampaignFeeHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return campaignView{
		ID:          campaign.ID,
		Title:       campaign.Title,
		Creator:     campaign.Creator,
		Status:      status.String(),
		Goal:        campaign.Goal,
		TotalRaised: campaign.TotalRaised,
		Token:       campaign.Token,
		Deadline:    campaign.Deadline,
		CreatedAt:   campaign.CreatedAt,
		FeesPaid:    fees,
		Metrics: campaignMetricsView{
			TotalRaised:      metrics.TotalRaised,
			ContributorCount: metrics.ContributorCount,
			LastDonationAt:   metrics.LastDonationAt,
			MaxDonation:      metrics.MaxDonation,
			TopContributor:   metrics.TopContributor,
		},
	}, nil
}

type campaignSummary struct {
	ID     common.CampaignID `yaml:"id"`
	Title  string            `yaml:"title"`
	Status string            `yaml:"status"`
	Raised common.Amount     `yaml:"raised"`
	Goal   common.Amount     `yaml:"goal"`
}

func inspectCampaigns(ctx context.Context, i *inspector, _ []string) (any, error) {
	ids, err := i.ls.GetAllCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	campaigns, err := i.ls.GetCampaigns(ctx, ids)
	if err != nil {
		return nil, err
	}
	ret := make([]campaignSummary, 0, len(campaigns))
	for _, campaign := range campaigns {
		status, err := i.ls.GetCampaignStatus(ctx, campaign.ID)
		if err != nil {
			return nil, err
		}
		ret = append(ret, campaignSummary{
			ID:     campaign.ID,
			Title:  campaign.Title,
			Status: status.String(),
			Raised: campaign.TotalRaised,
			Goal:   campaign.Goal,
		})
	}
	return ret, nil
}

type contributionView struct {
	Contributor common.Address `yaml:"contributor"`
	Amount      common.Amount  `yaml:"amount"`
	Asset       common.Address `yaml:"asset"`
}

type signerView struct {
	RequiredApprovals uint32           `yaml:"requiredApprovals"`
	Signers           []common.Address `yaml:"signers"`
}

type poolView struct {
	ID              common.PoolID      `yaml:"id"`
	Name            string             `yaml:"name"`
	Description     string             `yaml:"description,omitempty"`
	Creator         common.Address     `yaml:"creator"`
	State           string             `yaml:"state"`
	Private         bool               `yaml:"private"`
	Target          common.Amount      `yaml:"target"`
	MinContribution common.Amount      `yaml:"minContribution"`
	CreatedAt       uint64             `yaml:"createdAt"`
	Deadline        uint64             `yaml:"deadline"`
	RemainingTime   uint64             `yaml:"remainingTime"`
	ExternalURL     string             `yaml:"externalUrl,omitempty"`
	ImageHash       string             `yaml:"imageHash,omitempty"`
	Asset           common.Address     `yaml:"asset,omitempty"`
	TotalRaised     common.Amount      `yaml:"totalRaised"`
	TotalDisbursed  common.Amount      `yaml:"totalDisbursed"`
	Contributors    []contributionView `yaml:"contributors"`
	MultiSig        *signerView        `yaml:"multiSig,omitempty"`
}

func inspectPool(ctx context.Context, i *inspector, args []string) (any, error) {
	rawID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid pool ID %q: %w", args[0], err)
	}
	poolID := common.PoolID(rawID)
	pool, err := i.ls.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	state, err := i.ls.GetPoolState(ctx, poolID)
	if err != nil {
		return nil, err
	}
	metadata, err := i.ls.GetPoolMetadata(ctx, poolID)
	if err != nil {
		return nil, err
	}
	metrics, err := i.ls.GetPoolMetrics(ctx, poolID)
	if err != nil {
		return nil, err
	}
	remaining, err := i.ls.GetPoolRemainingTime(ctx, poolID)
	if err != nil {
		return nil, err
	}
	contributions, err := i.ls.GetPoolContributionsPaginated(
		ctx,
		poolID,
		0,
		math.MaxUint32,
	)
	if err != nil {
		return nil, err
	}
	ret := poolView{
		ID:              pool.ID,
		Name:            pool.Name,
		Description:     pool.Description,
		Creator:         pool.Creator,
		State:           state.String(),
		Private:         pool.IsPrivate,
		Target:          pool.Target,
		MinContribution: pool.MinContribution,
		CreatedAt:       pool.CreatedAt,
		Deadline:        pool.Deadline(),
		RemainingTime:   remaining,
		ExternalURL:     metadata.ExternalURL,
		ImageHash:       metadata.ImageHash,
		Asset:           metrics.Asset,
		TotalRaised:     metrics.TotalRaised,
		TotalDisbursed:  metrics.TotalDisbursed,
		Contributors:    make([]contributionView, 0, len(contributions)),
	}
	for _, c := range contributions {
		ret.Contributors = append(ret.Contributors, contributionView{
			Contributor: c.Contributor,
			Amount:      c.Amount,
			Asset:       c.Asset,
		})
	}
	cfg, err := i.ls.GetMultiSigConfig(ctx, poolID)
	switch {
	case err == nil:
		ret.MultiSig = &signerView{
			RequiredApprovals: cfg.RequiredApprovals,
			Signers:           cfg.Signers,
		}
	case !errors.Is(err, common.ErrInvalidMultiSigConfig):
		return nil, err
	}
	return ret, nil
}

type poolSummary struct {
	ID     common.PoolID  `yaml:"id"`
	Name   string         `yaml:"name"`
	State  string         `yaml:"state"`
	Target common.Amount  `yaml:"target"`
	Owner  common.Address `yaml:"creator"`
}

func inspectPools(ctx context.Context, i *inspector, _ []string) (any, error) {
	pools, err := i.ls.ListPools(ctx)
	if err != nil {
		return nil, err
	}
	ret := make([]poolSummary, 0, len(pools))
	for _, pool := range pools {
		state, err := i.ls.GetPoolState(ctx, pool.ID)
		if err != nil {
			return nil, err
		}
		ret = append(ret, poolSummary{
			ID:     pool.ID,
			Name:   pool.Name,
			State:  state.String(),
			Target: pool.Target,
			Owner:  pool.Creator,
		})
	}
	return ret, nil
}

type emergencyView struct {
	Recipient   common.Address `yaml:"recipient"`
	Token       common.Address `yaml:"token"`
	Amount      common.Amount  `yaml:"amount"`
	RequestedAt uint64         `yaml:"requestedAt"`
}

type adminView struct {
	Version          string         `yaml:"version"`
	Contract         common.Address `yaml:"contract"`
	Initialized      bool           `yaml:"initialized"`
	Admin            common.Address `yaml:"admin,omitempty"`
	Renounced        bool           `yaml:"renounced,omitempty"`
	Token            common.Address `yaml:"token,omitempty"`
	CreationFee      common.Amount  `yaml:"creationFee"`
	PlatformFeeRate  uint32         `yaml:"platformFeeRate"`
	PlatformFees     common.Amount  `yaml:"platformFees"`
	Paused           bool           `yaml:"paused"`
	CampaignsPaused  bool           `yaml:"campaignsPaused"`
	PoolsPaused      bool           `yaml:"poolsPaused"`
	Campaigns        int            `yaml:"campaigns"`
	ActiveCampaigns  uint32         `yaml:"activeCampaigns"`
	GlobalRaised     common.Amount  `yaml:"globalRaised"`
	EmergencyContact common.Address `yaml:"emergencyContact,omitempty"`
	PendingEmergency *emergencyView `yaml:"pendingEmergencyWithdrawal,omitempty"`
}

func inspectAdmin(ctx context.Context, i *inspector, _ []string) (any, error) {
	ret := adminView{
		Version:  i.ls.Version(),
		Contract: i.ls.ContractAddress(),
	}
	admin, err := i.ls.GetAdmin(ctx)
	switch {
	case errors.Is(err, common.ErrNotInitialized):
		return ret, nil
	case errors.Is(err, common.ErrUnauthorized):
		ret.Renounced = true
	case err != nil:
		return nil, err
	}
	ret.Initialized = true
	ret.Admin = admin
	if ret.Token, err = i.ls.GetCrowdfundingToken(ctx); err != nil {
		return nil, err
	}
	if ret.CreationFee, err = i.ls.GetCreationFee(ctx); err != nil {
		return nil, err
	}
	if ret.PlatformFeeRate, err = i.ls.GetPlatformFeeRate(ctx); err != nil {
		return nil, err
	}
	if ret.PlatformFees, err = i.ls.GetPlatformFees(ctx, ret.Token); err != nil {
		return nil, err
	}
	if ret.Paused, err = i.ls.IsPaused(ctx); err != nil {
		return nil, err
	}
	if ret.CampaignsPaused, err = i.ls.IsCampaignsPaused(ctx); err != nil {
		return nil, err
	}
	if ret.PoolsPaused, err = i.ls.IsPoolsPaused(ctx); err != nil {
		return nil, err
	}
	ids, err := i.ls.GetAllCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	ret.Campaigns = len(ids)
	if ret.ActiveCampaigns, err = i.ls.GetActiveCampaignCount(ctx); err != nil {
		return nil, err
	}
	if ret.GlobalRaised, err = i.ls.GetGlobalRaisedTotal(ctx); err != nil {
		return nil, err
	}
	contact, err := i.ls.GetEmergencyContact(ctx)
	switch {
	case err == nil:
		ret.EmergencyContact = contact
	case !errors.Is(err, common.ErrNotInitialized):
		return nil, err
	}
	pending, err := i.ls.GetEmergencyWithdrawal(ctx)
	switch {
	case err == nil:
		ret.PendingEmergency = &emergencyView{
			Recipient:   pending.Recipient,
			Token:       pending.Token,
			Amount:      pending.Amount,
			RequestedAt: pending.RequestedAt,
		}
	case !errors.Is(err, common.ErrEmergencyNotRequested):
		return nil, err
	}
	return ret, nil
}
