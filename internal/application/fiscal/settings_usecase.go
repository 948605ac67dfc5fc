package fiscal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturacion-fiscal/internal/application/dto"
	"github.com/jhoicas/facturacion-fiscal/internal/domain"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/entity"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/numbering"
	"github.com/jhoicas/facturacion-fiscal/internal/domain/repository"
	"github.com/jhoicas/facturacion-fiscal/pkg/verifactu"
)

// SettingsUseCase configuración fiscal por empresa: emisor, numeración y política.
type SettingsUseCase struct {
	tx        FiscalTxRunner
	issuers   repository.IssuerRepository
	policies  repository.PolicyRepository
	allocator *Allocator
	recorder  *Recorder
	opts      Options
	log       zerolog.Logger
}

// NewSettingsUseCase construye el caso de uso.
func NewSettingsUseCase(
	tx FiscalTxRunner,
	issuers repository.IssuerRepository,
	policies repository.PolicyRepository,
	allocator *Allocator,
	recorder *Recorder,
	opts Options,
	log zerolog.Logger,
) *SettingsUseCase {
	return &SettingsUseCase{
		tx:        tx,
		issuers:   issuers,
		policies:  policies,
		allocator: allocator,
		recorder:  recorder,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

// GetIssuer emisor de la empresa.
func (uc *SettingsUseCase) GetIssuer(ctx context.Context, actor entity.Actor) (*dto.IssuerResponse, error) {
	issuer, err := uc.issuers.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("obtener emisor: %w", err)
	}
	if issuer == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene emisor configurado", domain.ErrNotFound)
	}
	return ToIssuerResponse(issuer), nil
}

// SaveIssuer crea o actualiza los datos del emisor. Una empresa nueva recibe
// la plantilla y la serie por defecto.
func (uc *SettingsUseCase) SaveIssuer(ctx context.Context, actor entity.Actor, in dto.IssuerRequest) (*dto.IssuerResponse, error) {
	name := strings.TrimSpace(in.Name)
	taxID := verifactu.NormalizeTaxID(in.TaxID)
	if name == "" || taxID == "" {
		return nil, fmt.Errorf("%w: nombre y NIF del emisor son obligatorios", domain.ErrInvalidInput)
	}

	var saved *entity.Issuer
	err := uc.tx.RunFiscal(ctx, func(r TxRepos) error {
		issuer, err := r.Issuers.GetForUpdate(ctx, actor.CompanyID)
		if err != nil {
			return fmt.Errorf("bloquear emisor: %w", err)
		}
		now := uc.opts.Now().UTC()
		if issuer == nil {
			issuer = &entity.Issuer{
				CompanyID:         actor.CompanyID,
				Series:            entity.DefaultSeries,
				NumberingTemplate: entity.DefaultNumberingTemplate,
				NextNumber:        1,
				CreatedAt:         now,
			}
		}
		issuer.Name = name
		issuer.TaxID = taxID
		issuer.RectificationText = strings.TrimSpace(in.RectificationText)
		if issuer.RectificationText == "" {
			issuer.RectificationText = entity.DefaultRectificationText
		}
		issuer.ExemptText = strings.TrimSpace(in.ExemptText)
		issuer.ReducedRateText = strings.TrimSpace(in.ReducedRateText)
		issuer.UpdatedAt = now
		saved = issuer
		return r.Issuers.Save(ctx, issuer)
	})
	if err != nil {
		return nil, err
	}
	uc.recorder.Record(ctx, AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityConfig,
		EntityID: actor.CompanyID,
		Action:   entity.AuditActionConfigIssuer,
		Outcome:  entity.AuditOutcomeOK,
		Payload:  map[string]any{"name": saved.Name, "tax_id": saved.TaxID},
	})
	return ToIssuerResponse(saved), nil
}

// SaveNumbering cambia serie y plantilla. La plantilla se valida aquí, nunca al
// numerar; con la numeración bloqueada para el año en curso (o uno posterior)
// cualquier cambio se rechaza con ErrConfiguration.
func (uc *SettingsUseCase) SaveNumbering(ctx context.Context, actor entity.Actor, in dto.NumberingRequest) (*dto.IssuerResponse, error) {
	template := strings.TrimSpace(in.Template)
	series := strings.TrimSpace(in.Series)
	if series == "" {
		series = entity.DefaultSeries
	}
	year := CivilDate(uc.opts.Now(), uc.opts.Location).Year()

	var saved *entity.Issuer
	err := func() error {
		if err := numbering.Validate(template); err != nil {
			return err
		}
		return uc.tx.RunFiscal(ctx, func(r TxRepos) error {
			issuer, err := r.Issuers.GetForUpdate(ctx, actor.CompanyID)
			if err != nil {
				return fmt.Errorf("bloquear emisor: %w", err)
			}
			if issuer == nil {
				return fmt.Errorf("%w: configure primero los datos del emisor", domain.ErrConfiguration)
			}
			changed := issuer.NumberingTemplate != template || issuer.Series != series
			if changed && issuer.NumberingLockedFor(year) {
				return fmt.Errorf("%w: la numeración está bloqueada para %d, ya hay facturas validadas", domain.ErrConfiguration, issuer.LockedYear)
			}
			issuer.NumberingTemplate = template
			issuer.Series = series
			issuer.UpdatedAt = uc.opts.Now().UTC()
			saved = issuer
			return r.Issuers.Save(ctx, issuer)
		})
	}()

	rec := AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityConfig,
		EntityID: actor.CompanyID,
		Action:   entity.AuditActionConfigNumbering,
		Outcome:  entity.AuditOutcomeOK,
		Payload:  map[string]any{"series": series, "template": template},
	}
	if err != nil {
		rec.Outcome = entity.AuditOutcomeError
		rec.Reason = err.Error()
		uc.recorder.Record(ctx, rec)
		return nil, err
	}
	uc.recorder.Record(ctx, rec)
	return ToIssuerResponse(saved), nil
}

// PreviewNumber número que recibiría una validación fechada en date, sin consumirlo.
func (uc *SettingsUseCase) PreviewNumber(ctx context.Context, actor entity.Actor, date string) (*dto.NumberPreviewResponse, error) {
	d, err := ParseDate(date, CivilDate(uc.opts.Now(), uc.opts.Location))
	if err != nil {
		return nil, err
	}
	issuer, err := uc.issuers.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("obtener emisor: %w", err)
	}
	number, err := uc.allocator.Peek(issuer, d)
	if err != nil {
		return nil, err
	}
	return &dto.NumberPreviewResponse{Date: FormatDate(d), Number: number}, nil
}

// GetPolicy política fiscal de la empresa.
func (uc *SettingsUseCase) GetPolicy(ctx context.Context, actor entity.Actor) (*dto.PolicyResponse, error) {
	p, err := uc.policies.Get(ctx, actor.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("obtener política fiscal: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: la empresa no tiene política fiscal", domain.ErrNotFound)
	}
	return ToPolicyResponse(p), nil
}

// SavePolicy guarda la política. Un modo de envío distinto de OFF exige URL http(s).
func (uc *SettingsUseCase) SavePolicy(ctx context.Context, actor entity.Actor, in dto.PolicyRequest) (*dto.PolicyResponse, error) {
	p := &entity.FiscalPolicy{
		CompanyID:               actor.CompanyID,
		ImmutableValidated:      in.ImmutableValidated,
		ForbidValidatedDeletion: in.ForbidValidatedDeletion,
		BlockPastDates:          in.BlockPastDates,
		ComplianceMode:          strings.ToUpper(strings.TrimSpace(in.ComplianceMode)),
		ComplianceURL:           strings.TrimSpace(in.ComplianceURL),
		AuditEnabled:            in.AuditEnabled,
		AuditLevel:              strings.ToUpper(strings.TrimSpace(in.AuditLevel)),
		UpdatedAt:               uc.opts.Now().UTC(),
	}
	if p.ComplianceMode == "" {
		p.ComplianceMode = entity.ComplianceModeOff
	}
	if p.AuditLevel == "" {
		p.AuditLevel = entity.AuditLevelBasic
	}

	err := validatePolicy(p)
	if err == nil {
		if err = uc.policies.Save(ctx, p); err != nil {
			err = fmt.Errorf("guardar política fiscal: %w", err)
		}
	}

	// se audita con la política ya guardada (o la anterior si falló)
	rec := AuditRecord{
		Actor:    actor,
		Entity:   entity.AuditEntityConfig,
		EntityID: actor.CompanyID,
		Action:   entity.AuditActionConfigPolicy,
		Outcome:  entity.AuditOutcomeOK,
		Payload: map[string]any{
			"compliance_mode": p.ComplianceMode,
			"audit_level":     p.AuditLevel,
			"audit_enabled":   p.AuditEnabled,
		},
	}
	if err != nil {
		rec.Outcome = entity.AuditOutcomeError
		rec.Reason = err.Error()
	}
	uc.recorder.Record(ctx, rec)
	if err != nil {
		return nil, err
	}
	uc.log.Info().
		Str("company_id", actor.CompanyID).
		Str("compliance_mode", p.ComplianceMode).
		Str("audit_level", p.AuditLevel).
		Msg("política fiscal actualizada")
	return ToPolicyResponse(p), nil
}

func validatePolicy(p *entity.FiscalPolicy) error {
	if !entity.ValidComplianceMode(p.ComplianceMode) {
		return fmt.Errorf("%w: modo de envío desconocido %q", domain.ErrInvalidInput, p.ComplianceMode)
	}
	if !entity.ValidAuditLevel(p.AuditLevel) {
		return fmt.Errorf("%w: nivel de auditoría desconocido %q", domain.ErrInvalidInput, p.AuditLevel)
	}
	if !p.ComplianceActive() {
		return nil
	}
	if p.ComplianceURL == "" {
		return fmt.Errorf("%w: el modo %s requiere URL de envío", domain.ErrConfiguration, p.ComplianceMode)
	}
	u, err := url.Parse(p.ComplianceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: URL de envío inválida %q", domain.ErrConfiguration, p.ComplianceURL)
	}
	return nil
}

// EnsureDefaults crea la política por defecto de una empresa que no la tiene.
func (uc *SettingsUseCase) EnsureDefaults(ctx context.Context, companyID string) error {
	p, err := uc.policies.Get(ctx, companyID)
	if err != nil {
		return fmt.Errorf("obtener política fiscal: %w", err)
	}
	if p != nil {
		return nil
	}
	p = entity.DefaultFiscalPolicy(companyID)
	p.UpdatedAt = uc.opts.Now().UTC()
	if err := uc.policies.Save(ctx, p); err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return fmt.Errorf("crear política por defecto: %w", err)
	}
	return nil
}
