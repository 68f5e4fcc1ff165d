package store

import (
	"encoding/json"
	"fmt"

	"agentdesk/pkg/models"
)

// Key formats:
//   tenant:<tenantID>
//   tenant:<tenantID>:member:<memberID>
//   ticket:<tenantID>:<ticketID>

func tenantKey(tenantID string) string { return "tenant:" + tenantID }

func memberKey(tenantID, memberID string) string {
	return "tenant:" + tenantID + ":member:" + memberID
}

func ticketKey(tenantID, ticketID string) string {
	return "ticket:" + tenantID + ":" + ticketID
}

// SaveTenant upserts a tenant record.
func SaveTenant(t models.Tenant) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tenant: %w", err)
	}
	return set(tenantKey(t.ID), b)
}

// GetTenant loads a tenant by id; ErrTenantNotFound when absent.
func GetTenant(tenantID string) (*models.Tenant, error) {
	v, ok, err := get(tenantKey(tenantID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTenantNotFound
	}
	var t models.Tenant
	if err := json.Unmarshal(v, &t); err != nil {
		return nil, fmt.Errorf("invalid tenant JSON: %w", err)
	}
	return &t, nil
}

// SaveMember upserts a team directory entry for a tenant.
func SaveMember(tenantID string, m models.Member) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal member: %w", err)
	}
	return set(memberKey(tenantID, m.ID), b)
}

// ListMembers returns a tenant's team directory in member-id order.
func ListMembers(tenantID string) ([]models.Member, error) {
	var out []models.Member
	prefix := "tenant:" + tenantID + ":member:"
	err := scanPrefix(prefix, func(_ string, v []byte) bool {
		var m models.Member
		if json.Unmarshal(v, &m) == nil {
			out = append(out, m)
		}
		return true
	})
	return out, err
}

// SaveTicket upserts a ticket (full replace of mutable fields).
func SaveTicket(t models.Ticket) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}
	return set(ticketKey(t.TenantID, t.ID), b)
}

// GetTicket loads a ticket by id within a tenant; ErrTicketNotFound when
// absent.
func GetTicket(tenantID, ticketID string) (*models.Ticket, error) {
	v, ok, err := get(ticketKey(tenantID, ticketID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTicketNotFound
	}
	var t models.Ticket
	if err := json.Unmarshal(v, &t); err != nil {
		return nil, fmt.Errorf("invalid ticket JSON: %w", err)
	}
	return &t, nil
}
