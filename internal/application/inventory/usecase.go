package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RecordMovementFromRequest adapta el request HTTP a RecordMovement(ctx, MovementInput).
// Usar desde handlers HTTP u otros adaptadores que reciban tipo y unidad como texto.
func (s *LedgerService) RecordMovementFromRequest(ctx context.Context, userID string, in dto.RecordMovementRequest) (*RecordResult, error) {
	kind, ok := entity.ParseMovementKind(in.Kind)
	if !ok {
		return nil, domain.ErrUnknownKind
	}
	unit, ok := entity.ParseStockUnit(in.Unit)
	if !ok {
		return nil, domain.ErrUnknownUnit
	}
	return s.RecordMovement(ctx, MovementInput{
		ProductID:  in.ProductID,
		Kind:       kind,
		Unit:       unit,
		Quantity:   in.Quantity,
		Reference:  in.Reference,
		RecordedBy: userID,
	})
}

// ToRecordMovementResponse convierte el resultado al cuerpo HTTP.
func ToRecordMovementResponse(r *RecordResult) dto.RecordMovementResponse {
	warnings := make([]dto.WarningDTO, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, dto.WarningDTO{
			Code:            string(w.Code),
			Message:         w.Message,
			RequestedPieces: w.RequestedPieces,
			AppliedPieces:   w.AppliedPieces,
		})
	}
	return dto.RecordMovementResponse{
		Movement:   ToMovementDTO(r.Movement),
		Projection: ToProjectionDTO(r.Projection),
		Warnings:   warnings,
	}
}

// ToMovementDTO convierte un movimiento del log.
func ToMovementDTO(m *entity.StockMovement) dto.MovementDTO {
	return dto.MovementDTO{
		ID:         m.ID,
		ProductID:  m.ProductID,
		Kind:       string(m.Kind),
		Unit:       string(m.Unit),
		Quantity:   m.Quantity,
		RecordedAt: m.RecordedAt,
		Reference:  m.Reference,
		RecordedBy: m.RecordedBy,
	}
}

// ToProjectionDTO convierte una proyección.
func ToProjectionDTO(p entity.Projection) dto.ProjectionDTO {
	return dto.ProjectionDTO{
		ProductID:         p.ProductID,
		PiecesPerBaseUnit: p.PiecesPerBaseUnit,
		StockPieces:       p.StockPieces,
		StockBaseUnits:    p.StockBaseUnits,
	}
}

// ToDriftReportDTO convierte un reporte de divergencia.
func ToDriftReportDTO(r DriftReport) dto.DriftReportDTO {
	return dto.DriftReportDTO{
		ProductID: r.ProductID,
		Live:      ToProjectionDTO(r.Live),
		Replayed:  ToProjectionDTO(r.Replayed),
		Movements: r.Movements,
		Drifted:   r.Drifted,
		Repaired:  r.Repaired,
	}
}
