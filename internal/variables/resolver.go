package variables

import "time"

// System variable ids computed from the purchase context.
const (
	Participants = "participants"
	DayOfWeek    = "dayOfWeek"
	Hour         = "hour"
	Month        = "month"
	IsWeekend    = "isWeekend"
	IsFirstTime  = "isFirstTime"
)

// DefaultSystemVariables are resolved when Sources.SystemVariables is nil.
var DefaultSystemVariables = []Variable{
	{ID: Participants, Name: "Participants", Type: TypeFixed, Description: "Number of participants, defaults to 1"},
	{ID: DayOfWeek, Name: "Day of week", Type: TypeFixed, Description: "0 = Sunday ... 6 = Saturday"},
	{ID: Hour, Name: "Hour", Type: TypeFixed, Description: "Hour of day, 0-23"},
	{ID: Month, Name: "Month", Type: TypeFixed, Description: "Month of year, 1-12"},
	{ID: IsWeekend, Name: "Is weekend", Type: TypeFixed, Description: "1 on Saturday or Sunday"},
	{ID: IsFirstTime, Name: "Is first time", Type: TypeFixed, Description: "1 for a first-time customer"},
}

// Sources are the per-request variable inputs besides product variables.
type Sources struct {
	PurchaseVariables []Variable `json:"purchaseVariables,omitempty" yaml:"purchase_variables,omitempty"`
	SystemVariables   []Variable `json:"systemVariables,omitempty" yaml:"system_variables,omitempty"`
}

// Resolver merges system, product, purchase and custom variables, in
// increasing precedence, into one Table.
type Resolver struct {
	now func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the clock used for dayOfWeek, hour and month defaults.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails: missing or invalid numbers become 0 (participants 1).
func (r *Resolver) Resolve(src Sources, ctx Context, product []Variable) Table {
	table := make(Table)

	system := src.SystemVariables
	if system == nil {
		system = DefaultSystemVariables
	}
	now := r.now()
	for _, def := range system {
		if def.ID == "" {
			continue
		}
		v := def
		if v.Name == "" {
			v.Name = v.ID
		}
		if v.Type == "" {
			v.Type = TypeFixed
		}
		v.Value = systemValue(def.ID, ctx, now)
		table.Put(v)
	}

	for _, v := range product {
		if v.ID != "" {
			table.Put(v)
		}
	}
	for _, v := range src.PurchaseVariables {
		if v.ID != "" {
			table.Put(v)
		}
	}
	for id, value := range ctx.Custom() {
		table.Put(Variable{ID: id, Name: id, Type: TypeFixed, Value: value})
	}
	return table
}

func systemValue(id string, ctx Context, now time.Time) float64 {
	switch id {
	case Participants:
		if n, ok := ctx.Number(Participants); ok {
			return n
		}
		return 1
	case DayOfWeek:
		return dayOfWeek(ctx, now)
	case Hour:
		if n, ok := ctx.Number(Hour); ok {
			return n
		}
		return float64(now.Hour())
	case Month:
		if n, ok := ctx.Number(Month); ok {
			return n
		}
		return float64(now.Month())
	case IsWeekend:
		if d := dayOfWeek(ctx, now); d == 0 || d == 6 {
			return 1
		}
		return 0
	case IsFirstTime:
		if ctx.Flag(IsFirstTime) {
			return 1
		}
		return 0
	}
	n, _ := ctx.Number(id)
	return n
}

func dayOfWeek(ctx Context, now time.Time) float64 {
	if n, ok := ctx.Number(DayOfWeek); ok {
		return n
	}
	return float64(now.Weekday())
}
