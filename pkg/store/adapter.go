package store

import "agentdesk/pkg/models"

// Pebble adapts the package-level store functions to the interfaces the
// triage engine and delivery worker consume, so tests can substitute
// in-memory fakes while the daemon wires the real store.
type Pebble struct{}

func (Pebble) GetTicket(tenantID, ticketID string) (*models.Ticket, error) {
	return GetTicket(tenantID, ticketID)
}
func (Pebble) SaveTicket(t models.Ticket) error            { return SaveTicket(t) }
func (Pebble) GetTenant(tenantID string) (*models.Tenant, error) { return GetTenant(tenantID) }
func (Pebble) ListMembers(tenantID string) ([]models.Member, error) {
	return ListMembers(tenantID)
}
func (Pebble) SaveRun(r models.WorkflowRun) error { return SaveRun(r) }
func (Pebble) ListRuns(tenantID, ticketID string) ([]models.WorkflowRun, error) {
	return ListRuns(tenantID, ticketID)
}
func (Pebble) SaveStep(s models.WorkflowStep) error { return SaveStep(s) }
func (Pebble) ListSteps(runID string) ([]models.WorkflowStep, error) {
	return ListSteps(runID)
}
func (Pebble) SaveReply(r models.TicketReply) error { return SaveReply(r) }
func (Pebble) GetReply(replyID string) (*models.TicketReply, error) {
	return GetReply(replyID)
}
func (Pebble) MarkReplyDelivery(replyID string, status models.DeliveryStatus, provider, providerMsgID, deliveryErr string) error {
	return MarkReplyDelivery(replyID, status, provider, providerMsgID, deliveryErr)
}
