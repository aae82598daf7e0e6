package handlers

import (
	"github.com/opsledger/lifecycle-service/internal/api/dto"
	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/sla"
)

func entityResponse(e domain.Entity) any {
	switch v := e.(type) {
	case *domain.Project:
		return projectResponse(v)
	case *domain.Proposal:
		return proposalResponse(v)
	case *domain.Invoice:
		return invoiceResponse(v)
	case *domain.Ticket:
		return ticketResponse(v)
	case *domain.WorkflowInstance:
		return workflowResponse(v)
	}
	return nil
}

func projectResponse(p *domain.Project) dto.ProjectResponse {
	return dto.ProjectResponse{
		Meta:        metaResponse(&p.Meta),
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		ApprovedAt:  p.ApprovedAt,
		StartedAt:   p.StartedAt,
		CompletedAt: p.CompletedAt,
		CancelledAt: p.CancelledAt,
	}
}

func proposalResponse(p *domain.Proposal) dto.ProposalResponse {
	return dto.ProposalResponse{
		Meta:      metaResponse(&p.Meta),
		ProjectID: p.ProjectID,
		Title:     p.Title,
		Amount:    p.Amount,
		Status:    string(p.Status),
		SentAt:    p.SentAt,
		ViewedAt:  p.ViewedAt,
		DecidedAt: p.DecidedAt,
	}
}

func invoiceResponse(i *domain.Invoice) dto.InvoiceResponse {
	return dto.InvoiceResponse{
		Meta:           metaResponse(&i.Meta),
		Number:         i.Number,
		Currency:       i.Currency,
		Subtotal:       i.Subtotal,
		DiscountAmount: i.DiscountAmount,
		TaxAmount:      i.TaxAmount,
		Total:          i.Total,
		AmountPaid:     i.AmountPaid,
		BalanceDue:     i.BalanceDue,
		IsPaid:         i.IsPaid,
		Status:         string(i.Status),
		DueAt:          i.DueAt,
		SentAt:         i.SentAt,
		PaidAt:         i.PaidAt,
		CancelledAt:    i.CancelledAt,
		RefundedAt:     i.RefundedAt,
	}
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		Meta:                    metaResponse(&t.Meta),
		Title:                   t.Title,
		Description:             t.Description,
		Status:                  string(t.Status),
		Priority:                string(t.Priority),
		SLAResponseDueAt:        t.SLAResponseDueAt,
		SLAResolutionDueAt:      t.SLAResolutionDueAt,
		FirstResponseAt:         t.FirstResponseAt,
		ResolvedAt:              t.ResolvedAt,
		ClosedAt:                t.ClosedAt,
		IsSLAResponseBreached:   t.IsSLAResponseBreached,
		IsSLAResolutionBreached: t.IsSLAResolutionBreached,
	}
}

func atRiskResponses(items []sla.AtRiskTicket) []dto.AtRiskTicket {
	out := make([]dto.AtRiskTicket, 0, len(items))
	for i := range items {
		out = append(out, dto.AtRiskTicket{
			Ticket:   ticketResponse(&items[i].Ticket),
			Deadline: string(items[i].Deadline),
			DueAt:    items[i].DueAt,
		})
	}
	return out
}

func workflowResponse(w *domain.WorkflowInstance) dto.WorkflowResponse {
	return dto.WorkflowResponse{
		Meta:               metaResponse(&w.Meta),
		Name:               w.Name,
		ExternalWorkflowID: w.ExternalWorkflowID,
		Status:             string(w.Status),
		ExecutionCount:     w.ExecutionCount,
		SuccessCount:       w.SuccessCount,
		FailureCount:       w.FailureCount,
		SuccessRate:        w.SuccessRate(),
		LastExecutedAt:     w.LastExecutedAt,
	}
}

func executionResponse(e *domain.WorkflowExecution) dto.ExecutionResponse {
	return dto.ExecutionResponse{
		ID:                  e.ID,
		WorkflowID:          e.WorkflowID,
		ExternalExecutionID: e.ExternalExecutionID,
		Status:              string(e.Status),
		Error:               e.Error,
		Output:              e.Output,
		StartedAt:           e.StartedAt,
		FinishedAt:          e.FinishedAt,
		DurationMs:          e.DurationMs,
	}
}

func historyResponses(rows []domain.StatusHistory) []dto.HistoryEntry {
	out := make([]dto.HistoryEntry, 0, len(rows))
	for _, h := range rows {
		out = append(out, dto.HistoryEntry{
			ID:         h.ID,
			EntityKind: string(h.EntityKind),
			EntityID:   h.EntityID,
			ChangeType: string(h.ChangeType),
			ActorType:  string(h.ActorType),
			ActorID:    h.ActorID,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}
