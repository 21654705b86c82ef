package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"sharebasket/pkg/aggregate"
	"sharebasket/pkg/client"
	"sharebasket/pkg/model"
	"sharebasket/pkg/reconcile"
)

// Exit codes for CLI commands.
const (
	ExitSuccess     = 0
	ExitFailure     = 1 // the server rejected the request
	ExitUsage       = 2 // bad arguments or flags
	ExitUnavailable = 3 // server unreachable or overloaded
)

// ExitError carries a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if client.IsTransient(err) {
		return ExitUnavailable
	}
	return ExitFailure
}

// errorMessage prefers the server's own message over the wrapped chain.
func errorMessage(err error) string {
	var nf *client.NotFoundError
	if errors.As(err, &nf) {
		return nf.Message
	}
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		msg := ve.Message
		for field, problem := range ve.Details {
			msg += fmt.Sprintf("\n  %s: %v", field, problem)
		}
		return msg
	}
	return err.Error()
}

// Response is the JSON envelope of every command's output.
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type viewBody struct {
	Code          string          `json:"basket_code"`
	Participant   string          `json:"participant"`
	Items         []*model.Item   `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Individual    decimal.Decimal `json:"individual"`
	ByParticipant []model.Share   `json:"by_participant"`
	FetchedAt     time.Time       `json:"fetched_at"`
	Notice        string          `json:"notice,omitempty"`
}

// Printer renders command results as text or JSON.
type Printer struct {
	Format string
	Writer io.Writer
}

func NewPrinter(w io.Writer, format string) *Printer {
	return &Printer{Format: format, Writer: w}
}

func (p *Printer) isJSON() bool {
	return p.Format == "json"
}

func (p *Printer) encode(data any) error {
	return json.NewEncoder(p.Writer).Encode(Response{Status: "ok", Data: data})
}

func (p *Printer) Created(resp *model.CreateBasketResponse) error {
	if p.isJSON() {
		return p.encode(resp)
	}
	_, err := fmt.Fprintf(p.Writer, "Basket created: %s\nShare this code with the others to join.\n", resp.Code)
	return err
}

func (p *Printer) Joined(code, name string) error {
	if p.isJSON() {
		return p.encode(model.JoinBasketResponse{Code: code})
	}
	_, err := fmt.Fprintf(p.Writer, "%s joined basket %s\n", name, code)
	return err
}

func (p *Printer) Added(item *model.Item) error {
	if p.isJSON() {
		return p.encode(item)
	}
	_, err := fmt.Fprintf(p.Writer, "Added #%d %s (%d x %s)\n",
		item.ID, item.Product, item.Quantity, aggregate.Format(item.Price))
	return err
}

func (p *Printer) Removed(id int64) error {
	if p.isJSON() {
		return p.encode(map[string]int64{"id": id})
	}
	_, err := fmt.Fprintf(p.Writer, "Removed item #%d\n", id)
	return err
}

func (p *Printer) Items(code string, items []*model.Item) error {
	if p.isJSON() {
		return p.encode(model.ItemList{Code: code, Items: items})
	}
	return p.itemTable(items)
}

func (p *Printer) Summary(s *model.Summary) error {
	if p.isJSON() {
		return p.encode(s)
	}
	return p.summaryText(s.Total, s.Individual, s.Participant, s.ByParticipant)
}

// View prints one snapshot from a watch session. In JSON mode each view is
// one line, so the stream can be piped.
func (p *Printer) View(v reconcile.View) error {
	if p.isJSON() {
		return p.encode(viewBody{
			Code:          v.Code,
			Participant:   v.Participant,
			Items:         v.Items,
			Total:         v.Totals.Total,
			Individual:    v.Totals.Individual,
			ByParticipant: v.Shares,
			FetchedAt:     v.FetchedAt,
			Notice:        v.Notice,
		})
	}
	fmt.Fprintf(p.Writer, "── %s · %s · %s\n", v.Code, v.Participant, v.FetchedAt.Format(time.TimeOnly))
	if v.Notice != "" {
		fmt.Fprintf(p.Writer, "! %s\n", v.Notice)
	}
	if err := p.itemTable(v.Items); err != nil {
		return err
	}
	return p.summaryText(v.Totals.Total, v.Totals.Individual, v.Participant, v.Shares)
}

func (p *Printer) itemTable(items []*model.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(p.Writer, "The basket is empty.")
		return err
	}
	tw := tabwriter.NewWriter(p.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tPRICE\tSUBTOTAL\tADDED BY")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			it.ID, it.Product, it.Quantity, aggregate.Format(it.Price),
			aggregate.Format(it.LineTotal()), it.AddedBy)
	}
	return tw.Flush()
}

func (p *Printer) summaryText(total, individual decimal.Decimal, participant string, shares []model.Share) error {
	fmt.Fprintf(p.Writer, "Total: %s\n", aggregate.Format(total))
	if participant != "" {
		fmt.Fprintf(p.Writer, "Yours (%s): %s\n", participant, aggregate.Format(individual))
	}
	if len(shares) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(p.Writer, 0, 4, 2, ' ', 0)
	for _, s := range shares {
		fmt.Fprintf(tw, "  %s\t%s\t%d items\n", s.Participant, aggregate.Format(s.Subtotal), s.ItemCount)
	}
	return tw.Flush()
}
