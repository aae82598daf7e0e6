package transition

import "github.com/opsledger/lifecycle-service/internal/domain"

// graph is the declarative transition table of one entity kind. Edge order is the
// order in which available transitions are reported.
type graph struct {
	initial string
	edges   map[string][]string
}

var graphs = map[domain.EntityKind]graph{
	domain.KindProject: {
		initial: string(domain.ProjectStatusDraft),
		edges: map[string][]string{
			string(domain.ProjectStatusDraft):        {string(domain.ProjectStatusProposalSent), string(domain.ProjectStatusCancelled)},
			string(domain.ProjectStatusProposalSent): {string(domain.ProjectStatusApproved), string(domain.ProjectStatusDraft), string(domain.ProjectStatusCancelled)},
			string(domain.ProjectStatusApproved):     {string(domain.ProjectStatusInProgress), string(domain.ProjectStatusOnHold), string(domain.ProjectStatusCancelled)},
			string(domain.ProjectStatusInProgress):   {string(domain.ProjectStatusCompleted), string(domain.ProjectStatusOnHold), string(domain.ProjectStatusCancelled)},
			string(domain.ProjectStatusOnHold):       {string(domain.ProjectStatusInProgress), string(domain.ProjectStatusCancelled)},
			string(domain.ProjectStatusCancelled):    {string(domain.ProjectStatusDraft)},
			string(domain.ProjectStatusCompleted):    {},
		},
	},
	domain.KindProposal: {
		initial: string(domain.ProposalStatusDraft),
		edges: map[string][]string{
			string(domain.ProposalStatusDraft):    {string(domain.ProposalStatusSent)},
			string(domain.ProposalStatusSent):     {string(domain.ProposalStatusViewed), string(domain.ProposalStatusApproved), string(domain.ProposalStatusRejected), string(domain.ProposalStatusExpired), string(domain.ProposalStatusRevised)},
			string(domain.ProposalStatusViewed):   {string(domain.ProposalStatusApproved), string(domain.ProposalStatusRejected), string(domain.ProposalStatusExpired), string(domain.ProposalStatusRevised)},
			string(domain.ProposalStatusApproved): {},
			string(domain.ProposalStatusRejected): {},
			string(domain.ProposalStatusExpired):  {},
			string(domain.ProposalStatusRevised):  {},
		},
	},
	domain.KindInvoice: {
		initial: string(domain.InvoiceStatusDraft),
		edges: map[string][]string{
			string(domain.InvoiceStatusDraft):         {string(domain.InvoiceStatusSent), string(domain.InvoiceStatusCancelled)},
			string(domain.InvoiceStatusSent):          {string(domain.InvoiceStatusPaid), string(domain.InvoiceStatusPartiallyPaid), string(domain.InvoiceStatusOverdue), string(domain.InvoiceStatusCancelled)},
			string(domain.InvoiceStatusPartiallyPaid): {string(domain.InvoiceStatusPaid), string(domain.InvoiceStatusOverdue), string(domain.InvoiceStatusCancelled)},
			string(domain.InvoiceStatusOverdue):       {string(domain.InvoiceStatusPaid), string(domain.InvoiceStatusPartiallyPaid), string(domain.InvoiceStatusCancelled)},
			string(domain.InvoiceStatusPaid):          {string(domain.InvoiceStatusRefunded)},
			string(domain.InvoiceStatusCancelled):     {},
			string(domain.InvoiceStatusRefunded):      {},
		},
	},
	domain.KindTicket: {
		initial: string(domain.TicketStatusOpen),
		edges: map[string][]string{
			string(domain.TicketStatusOpen):       {string(domain.TicketStatusInProgress), string(domain.TicketStatusWaiting), string(domain.TicketStatusClosed)},
			string(domain.TicketStatusInProgress): {string(domain.TicketStatusWaiting), string(domain.TicketStatusResolved), string(domain.TicketStatusClosed)},
			string(domain.TicketStatusWaiting):    {string(domain.TicketStatusInProgress), string(domain.TicketStatusClosed)},
			string(domain.TicketStatusResolved):   {string(domain.TicketStatusClosed), string(domain.TicketStatusInProgress)},
			string(domain.TicketStatusClosed):     {},
		},
	},
	domain.KindWorkflow: {
		initial: string(domain.WorkflowStatusDraft),
		edges: map[string][]string{
			string(domain.WorkflowStatusDraft):   {string(domain.WorkflowStatusActive)},
			string(domain.WorkflowStatusActive):  {string(domain.WorkflowStatusPaused), string(domain.WorkflowStatusError), string(domain.WorkflowStatusDeleted)},
			string(domain.WorkflowStatusPaused):  {string(domain.WorkflowStatusActive), string(domain.WorkflowStatusDeleted)},
			string(domain.WorkflowStatusError):   {string(domain.WorkflowStatusActive), string(domain.WorkflowStatusDeleted)},
			string(domain.WorkflowStatusDeleted): {},
		},
	},
}
