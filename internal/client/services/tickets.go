package services

import (
	"context"
	"net/http"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/models"
)

var (
	TicketPriorities = []string{"low", "medium", "high", "urgent"}
	TicketCategories = []string{"technical", "hr", "payroll", "general", "other"}
	TicketStatuses   = []string{models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed}
)

type TicketFilter struct {
	Status   string
	Priority string
	Category string
}

type NewTicket struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Priority string `json:"priority,omitempty"`
	Category string `json:"category,omitempty"`
}

func (t NewTicket) Validate() error {
	ch := checks{}
	ch.required("subject", t.Subject, "Please fill in all required fields")
	ch.required("message", t.Message, "Please fill in all required fields")
	ch.oneOf("priority", t.Priority, TicketPriorities...)
	ch.oneOf("category", t.Category, TicketCategories...)
	return ch.err()
}

type TicketReply struct {
	Message string `json:"message"`
}

func (r TicketReply) Validate() error {
	ch := checks{}
	ch.required("message", r.Message, "Please enter a reply message")
	return ch.err()
}

type Tickets struct{ c *client.Client }

const ticketsPath = "/help-center"

func (s *Tickets) List(ctx context.Context, f TicketFilter) (*api.Envelope[[]models.HelpTicket], error) {
	return get[[]models.HelpTicket](ctx, s.c, ticketsPath,
		values("status", f.Status, "priority", f.Priority, "category", f.Category))
}

func (s *Tickets) Get(ctx context.Context, id string) (*api.Envelope[models.HelpTicket], error) {
	return get[models.HelpTicket](ctx, s.c, idPath(ticketsPath, id), nil)
}

func (s *Tickets) Create(ctx context.Context, in NewTicket) (*api.Envelope[models.HelpTicket], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return call[models.HelpTicket](ctx, s.c, http.MethodPost, ticketsPath, nil, in)
}

func (s *Tickets) Reply(ctx context.Context, id string, in TicketReply) (*api.Envelope[models.HelpTicket], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return call[models.HelpTicket](ctx, s.c, http.MethodPut, idPath(ticketsPath, id)+"/reply", nil, in)
}

func (s *Tickets) UpdateStatus(ctx context.Context, id, status string) (*api.Envelope[models.HelpTicket], error) {
	ch := checks{}
	ch.required("status", status, "Status is required")
	ch.oneOf("status", status, TicketStatuses...)
	if err := ch.err(); err != nil {
		return nil, err
	}
	return call[models.HelpTicket](ctx, s.c, http.MethodPut, idPath(ticketsPath, id)+"/status", nil, map[string]string{"status": status})
}

func (s *Tickets) Delete(ctx context.Context, id string) (*api.Envelope[Deleted], error) {
	return call[Deleted](ctx, s.c, http.MethodDelete, idPath(ticketsPath, id), nil, nil)
}

func (s *Tickets) Stats(ctx context.Context) (*api.Envelope[api.TicketStats], error) {
	return get[api.TicketStats](ctx, s.c, ticketsPath+"/stats", nil)
}
