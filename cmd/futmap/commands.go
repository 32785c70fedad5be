package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"futmap/internal/models"
)

var errNotLoggedIn = errors.New("not logged in, run `futmap login` first")

type handler func(a *app, ctx context.Context, args []string) error

var commands = map[string]handler{
	"fields":   (*app).cmdFields,
	"search":   (*app).cmdSearch,
	"filter":   (*app).cmdFilter,
	"field":    (*app).cmdField,
	"slots":    (*app).cmdSlots,
	"login":    (*app).cmdLogin,
	"signup":   (*app).cmdSignup,
	"logout":   (*app).cmdLogout,
	"whoami":   (*app).cmdWhoami,
	"fav-add":  (*app).cmdFavAdd,
	"fav-rm":   (*app).cmdFavRemove,
	"book":     (*app).cmdBook,
	"cancel":   (*app).cmdCancel,
	"bookings": (*app).cmdBookings,
	"upcoming": (*app).cmdUpcoming,
	"stats":    (*app).cmdStats,
	"export":   (*app).cmdExport,
}

var usages = map[string]string{
	"fields":   "fields",
	"search":   "search <query>",
	"filter":   "filter [-type t1,t2] [-size s] [-min-price n] [-max-price n] [-rating n] [-amenities a,b] [-date d -start hh:mm -end hh:mm]",
	"field":    "field <id>",
	"slots":    "slots <field-id> <date>",
	"login":    "login <email> <password>",
	"signup":   "signup -name n -email e -password p [-phone ph]",
	"logout":   "logout",
	"whoami":   "whoami",
	"fav-add":  "fav-add <field-id>",
	"fav-rm":   "fav-rm <field-id>",
	"book":     "book <field-id> <date> <start> <end> [-players n] [-notes text] [-pending]",
	"cancel":   "cancel <booking-id>",
	"bookings": "bookings [-status s]",
	"upcoming": "upcoming",
	"stats":    "stats",
	"export":   "export [-out file.xlsx]",
}

var commandOrder = []string{
	"fields", "search", "filter", "field", "slots",
	"login", "signup", "logout", "whoami", "fav-add", "fav-rm",
	"book", "cancel", "bookings", "upcoming", "stats", "export",
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: futmap [-config path] [-db path] <command> [args]")
	fmt.Fprintln(w, "\nCommands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %s\n", usages[name])
	}
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd(a, ctx, args)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprintf(fs.Output(), "Usage: futmap %s\n", usages[name]) }
	return fs
}

func wantArgs(name string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("usage: futmap %s", usages[name])
	}
	return nil
}

func (a *app) currentUser() (*models.User, error) {
	u, ok := a.session.Current()
	if !ok {
		return nil, errNotLoggedIn
	}
	return u, nil
}

func (a *app) cmdFields(ctx context.Context, _ []string) error {
	a.printFields(a.catalog.ListAll(ctx))
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	if err := wantArgs("search", args, 1); err != nil {
		return err
	}
	a.printFields(a.catalog.Search(ctx, args[0]))
	return nil
}

func (a *app) cmdFilter(ctx context.Context, args []string) error {
	fs := newFlagSet("filter")
	criteria := models.DefaultMapFilter()
	var types, sizes, amenities, date, start, end string
	fs.StringVar(&types, "type", "", "comma-separated field types")
	fs.StringVar(&sizes, "size", "", "comma-separated field sizes")
	fs.Float64Var(&criteria.PriceRange.Min, "min-price", criteria.PriceRange.Min, "minimum price")
	fs.Float64Var(&criteria.PriceRange.Max, "max-price", criteria.PriceRange.Max, "maximum price")
	fs.Float64Var(&criteria.Rating, "rating", 0, "minimum rating")
	fs.StringVar(&amenities, "amenities", "", "comma-separated amenities, any matches")
	fs.StringVar(&date, "date", "", "date with a free slot (YYYY-MM-DD)")
	fs.StringVar(&start, "start", "", "window start (HH:MM)")
	fs.StringVar(&end, "end", "", "window end (HH:MM)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, t := range splitList(types) {
		ft := models.FieldType(t)
		if !ft.Valid() {
			return fmt.Errorf("unknown field type %q", t)
		}
		criteria.Types = append(criteria.Types, ft)
	}
	for _, s := range splitList(sizes) {
		sz := models.FieldSize(s)
		if !sz.Valid() {
			return fmt.Errorf("unknown field size %q", s)
		}
		criteria.Sizes = append(criteria.Sizes, sz)
	}
	criteria.Amenities = splitList(amenities)
	if date != "" {
		criteria.Availability = &models.AvailabilityWindow{Date: date, StartTime: start, EndTime: end}
	} else if start != "" || end != "" {
		return errors.New("-start/-end require -date")
	}

	a.printFields(a.catalog.Filter(ctx, criteria))
	fmt.Fprintf(a.out, "active filters: %d\n", criteria.ActiveFacets())
	return nil
}

func (a *app) cmdField(ctx context.Context, args []string) error {
	if err := wantArgs("field", args, 1); err != nil {
		return err
	}
	f, ok := a.catalog.GetByID(ctx, args[0])
	if !ok {
		return fmt.Errorf("field %s not found", args[0])
	}

	fav := ""
	if a.session.IsFavorite(f.ID) {
		fav = " ★"
	}
	fmt.Fprintf(a.out, "%s%s\n", f.Name, fav)
	fmt.Fprintf(a.out, "  %s\n", f.Address)
	fmt.Fprintf(a.out, "  %s, %s, R$ %.2f/%s, rating %.1f (%d)\n", f.Type, f.Size, f.Price, f.PriceUnit, f.Rating, f.TotalRatings)
	fmt.Fprintf(a.out, "  amenities: %s\n", strings.Join(f.Amenities, ", "))
	fmt.Fprintf(a.out, "  contact: %s %s\n", f.Contact.Phone, f.Contact.Email)
	if f.Description != "" {
		fmt.Fprintf(a.out, "  %s\n", f.Description)
	}
	a.printSlots(f.Availability)
	return nil
}

func (a *app) cmdSlots(ctx context.Context, args []string) error {
	if err := wantArgs("slots", args, 2); err != nil {
		return err
	}
	if _, ok := a.catalog.GetByID(ctx, args[0]); !ok {
		return fmt.Errorf("field %s not found", args[0])
	}
	a.printSlots(a.catalog.Availability(ctx, args[0], args[1]))
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if err := wantArgs("login", args, 2); err != nil {
		return err
	}
	u, err := a.session.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s <%s>\n", u.Name, u.Email)
	return nil
}

func (a *app) cmdSignup(ctx context.Context, args []string) error {
	fs := newFlagSet("signup")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	phone := fs.String("phone", "", "phone")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.session.Signup(ctx, *name, *email, *phone, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "welcome, %s (%s)\n", u.Name, u.ID)
	return nil
}

func (a *app) cmdLogout(ctx context.Context, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context, _ []string) error {
	u, err := a.currentUser()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> %s\n", u.Name, u.Email, u.ID)
	favs := a.catalog.Favorites(ctx, u.FavoriteFields)
	if len(favs) == 0 {
		fmt.Fprintln(a.out, "no favorite fields")
		return nil
	}
	fmt.Fprintln(a.out, "favorites:")
	a.printFields(favs)
	return nil
}

func (a *app) cmdFavAdd(ctx context.Context, args []string) error {
	if err := wantArgs("fav-add", args, 1); err != nil {
		return err
	}
	if _, err := a.currentUser(); err != nil {
		return err
	}
	if _, ok := a.catalog.GetByID(ctx, args[0]); !ok {
		return fmt.Errorf("field %s not found", args[0])
	}
	return a.session.AddFavorite(ctx, args[0])
}

func (a *app) cmdFavRemove(ctx context.Context, args []string) error {
	if err := wantArgs("fav-rm", args, 1); err != nil {
		return err
	}
	if _, err := a.currentUser(); err != nil {
		return err
	}
	return a.session.RemoveFavorite(ctx, args[0])
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	// позиционные аргументы идут первыми, флаги после них
	if len(args) < 4 {
		return wantArgs("book", args, 4)
	}
	fs := newFlagSet("book")
	players := fs.Int("players", 0, "number of players")
	notes := fs.String("notes", "", "notes for the field")
	pending := fs.Bool("pending", false, "create as pending instead of the default status")
	if err := fs.Parse(args[4:]); err != nil {
		return err
	}

	u, err := a.currentUser()
	if err != nil {
		return err
	}

	fieldID, date, start, end := args[0], args[1], args[2], args[3]
	f, ok := a.catalog.GetByID(ctx, fieldID)
	if !ok {
		return fmt.Errorf("field %s not found", fieldID)
	}

	draft := models.BookingDraft{
		FieldID:     f.ID,
		FieldName:   f.Name,
		UserID:      u.ID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		TotalPrice:  f.Price,
		PlayerCount: *players,
		Notes:       *notes,
	}
	for _, s := range f.Availability {
		if s.Matches(date, start) {
			draft.TotalPrice = s.Price
			break
		}
	}
	if *pending {
		draft.Status = models.StatusPending
	}

	b, err := a.ledger.Create(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "booked %s: %s %s %s-%s, R$ %.2f (%s)\n", b.ID, b.FieldName, b.Date, b.StartTime, b.EndTime, b.TotalPrice, b.Status)
	return nil
}

func (a *app) cmdCancel(ctx context.Context, args []string) error {
	if err := wantArgs("cancel", args, 1); err != nil {
		return err
	}
	ok, err := a.ledger.Cancel(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "booking %s was not active, nothing to cancel\n", args[0])
		return nil
	}
	fmt.Fprintf(a.out, "cancelled %s\n", args[0])
	return nil
}

func (a *app) cmdBookings(ctx context.Context, args []string) error {
	fs := newFlagSet("bookings")
	status := fs.String("status", "", "pending, confirmed or cancelled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.currentUser()
	if err != nil {
		return err
	}

	var list []models.Booking
	if *status != "" {
		list, err = a.ledger.ListByStatus(ctx, u.ID, models.BookingStatus(*status))
	} else {
		list, err = a.ledger.ListForUser(ctx, u.ID)
	}
	if err != nil {
		return err
	}
	a.printBookings(list)
	return nil
}

func (a *app) cmdUpcoming(ctx context.Context, _ []string) error {
	u, err := a.currentUser()
	if err != nil {
		return err
	}
	list, err := a.ledger.Upcoming(ctx, u.ID, time.Now())
	if err != nil {
		return err
	}
	a.printBookings(list)
	return nil
}

func (a *app) cmdStats(ctx context.Context, _ []string) error {
	u, err := a.currentUser()
	if err != nil {
		return err
	}
	st, err := a.ledger.Stats(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "total: %d  confirmed: %d  pending: %d  cancelled: %d  spent: R$ %.2f\n",
		st.Total, st.Confirmed, st.Pending, st.Cancelled, st.TotalSpent)
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	outPath := fs.String("out", "", "output file; defaults to the exports directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := a.currentUser()
	if err != nil {
		return err
	}

	path := *outPath
	if path == "" {
		if path, err = a.exporter.SaveUserBookings(ctx, u.ID); err != nil {
			return err
		}
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := a.exporter.WriteUserBookings(ctx, f, u.ID); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	fmt.Fprintf(a.out, "exported to %s\n", path)
	return nil
}

func (a *app) printFields(fields []models.Field) {
	if len(fields) == 0 {
		fmt.Fprintln(a.out, "no fields found")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tPRICE\tRATING\t")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\tR$ %.2f/%s\t%.1f\t\n", f.ID, f.Name, f.Type, f.Size, f.Price, f.PriceUnit, f.Rating)
	}
	_ = tw.Flush()
}

func (a *app) printSlots(slots []models.TimeSlot) {
	if len(slots) == 0 {
		fmt.Fprintln(a.out, "no slots")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tPRICE\tSTATUS\t")
	for _, s := range slots {
		state := "taken"
		if s.IsAvailable {
			state = "free"
		}
		fmt.Fprintf(tw, "%s\t%s-%s\tR$ %.2f\t%s\t\n", s.Date, s.StartTime, s.EndTime, s.Price, state)
	}
	_ = tw.Flush()
}

func (a *app) printBookings(list []models.Booking) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no bookings")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFIELD\tDATE\tTIME\tPRICE\tSTATUS\t")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s-%s\tR$ %.2f\t%s\t\n", b.ID, b.FieldName, b.Date, b.StartTime, b.EndTime, b.TotalPrice, b.Status)
	}
	_ = tw.Flush()
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
