package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"staffdesk/internal/client/gate"
	"staffdesk/internal/client/listing"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/tracking"
	"staffdesk/internal/models"
)

var locationHeaders = []string{"ID", "EMPLOYEE", "STATUS", "CHECK IN", "CHECK OUT", "ADDRESS"}

func locationRows(locs []models.LocationCheckIn) [][]string {
	rows := make([][]string, 0, len(locs))
	for _, l := range locs {
		rows = append(rows, []string{l.ID, ownerName(l.Employee), l.Status, ts(l.CheckInTime), optTS(l.CheckOutTime), orDash(l.Address)})
	}
	return rows
}

func locationView(l models.LocationCheckIn) view {
	rows := [][]string{
		{"ID", l.ID},
		{"Employee", ownerName(l.Employee)},
		{"Status", l.Status},
		{"Checked in", ts(l.CheckInTime)},
		{"Checked out", optTS(l.CheckOutTime)},
		{"Address", orDash(l.Address)},
		{"Position", fmt.Sprintf("%.6f, %.6f (±%.0fm)", l.Latitude, l.Longitude, l.Accuracy)},
		{"Device", orDash(l.Device)},
		{"Map", tracking.MapURL(l.Latitude, l.Longitude)},
	}
	if l.LastLatitude != nil && l.LastLongitude != nil {
		rows = append(rows,
			[]string{"Last seen", fmt.Sprintf("%.6f, %.6f at %s", *l.LastLatitude, *l.LastLongitude, optTS(l.LastUpdateAt))},
			[]string{"Live map", tracking.MapURL(*l.LastLatitude, *l.LastLongitude)},
		)
	}
	return view{data: l, rows: rows}
}

// position reads --lat/--lon/--accuracy into a fixed locator.
type position struct {
	lat, lon, acc float64
}

func (p *position) flags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&p.lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&p.lon, "lon", 0, "longitude in degrees")
	cmd.Flags().Float64Var(&p.acc, "accuracy", 0, "accuracy in meters")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
}

func (p *position) locator() tracking.Locator {
	return tracking.Static{Latitude: p.lat, Longitude: p.lon, Accuracy: p.acc}
}

func (a *app) tracker(loc tracking.Locator) *tracking.Tracker {
	return &tracking.Tracker{
		Locations: a.svc.Locations,
		Store:     a.store,
		Locator:   loc,
		Geocoder:  tracking.NewGeocoder(a.cfg.GeocoderURL),
		Log:       a.log,
	}
}

var errNoOpenCheckIn = errors.New("you are not checked in")

// openCheckIn finds the caller's open check-in when no id was given.
func (a *app) openCheckIn(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if a.session.IsAdmin() {
		return "", errors.New("pass the check-in id")
	}
	env, err := a.svc.Locations.List(ctx, services.LocationFilter{Status: models.CheckedIn})
	if err != nil {
		return "", err
	}
	open, ok := listing.OpenCheckIn(env.Data)
	if !ok {
		return "", errNoOpenCheckIn
	}
	return open.ID, nil
}

func newLocationsCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:         "locations",
		Aliases:     []string{"location", "loc"},
		Short:       "Check in, check out and follow live positions",
		Annotations: routed(gate.Locations),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var q listing.LocationQuery
	var employeeID, order string
	list := &cobra.Command{
		Use:         "list",
		Short:       "List check-ins with local filtering and sorting",
		Annotations: routed(gate.Locations),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkSortKey(q.SortBy, listing.LocationSortKeys()); err != nil {
				return err
			}
			o, err := parseOrder(order)
			if err != nil {
				return err
			}
			q.Order = o
			env, err := a.svc.Locations.List(cmd.Context(), services.LocationFilter{EmployeeID: employeeID})
			if err != nil {
				return err
			}
			locs := listing.Locations(env.Data, q)
			return a.render(cmd.OutOrStdout(), view{data: locs, headers: locationHeaders, rows: locationRows(locs)})
		},
	}
	lf := list.Flags()
	lf.StringVar(&q.Status, "status", listing.All, "checked-in, checked-out or all")
	lf.StringVar(&q.EmployeeName, "employee", "", "employee name contains (case-insensitive)")
	lf.StringVar(&employeeID, "employee-id", "", "only this employee's check-ins (admin)")
	lf.StringVar(&q.SortBy, "sort", "", "sort by "+strings.Join(listing.LocationSortKeys(), ", ")+" (default newest check-in first)")
	lf.StringVar(&order, "order", "desc", "asc or desc")

	get := &cobra.Command{
		Use:         "get <id>",
		Short:       "Show one check-in",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Locations),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Locations.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), locationView(env.Data))
		},
	}

	var here position
	var follow bool
	var interval time.Duration
	checkin := &cobra.Command{
		Use:         "checkin",
		Short:       "Check in at a position",
		Annotations: routed(gate.Locations),
		Example:     `  staffctl locations checkin --lat -6.2088 --lon 106.8456 --accuracy 12 --track`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tr := a.tracker(here.locator())
			rec, err := tr.CheckIn(cmd.Context())
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Checked in at %s", rec.Address)
			if err := a.render(cmd.OutOrStdout(), locationView(*rec)); err != nil {
				return err
			}
			if !follow {
				return nil
			}
			return a.track(cmd, tr, rec.ID, interval)
		},
	}
	here.flags(checkin)
	checkin.Flags().BoolVar(&follow, "track", false, "keep sending live updates until interrupted")
	checkin.Flags().DurationVar(&interval, "interval", 30*time.Second, "live update interval with --track")

	checkout := &cobra.Command{
		Use:         "checkout [id]",
		Short:       "Check out (defaults to your open check-in)",
		Args:        cobra.MaximumNArgs(1),
		Annotations: routed(gate.Locations),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.openCheckIn(cmd.Context(), args)
			if err != nil {
				return err
			}
			rec, err := a.tracker(nil).CheckOut(cmd.Context(), id)
			if err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Checked out at %s", optTS(rec.CheckOutTime))
			return nil
		},
	}

	var there position
	var every time.Duration
	track := &cobra.Command{
		Use:         "track [id]",
		Short:       "Send live position updates for an open check-in",
		Args:        cobra.MaximumNArgs(1),
		Annotations: routed(gate.Locations),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.openCheckIn(cmd.Context(), args)
			if err != nil {
				return err
			}
			return a.track(cmd, a.tracker(there.locator()), id, every)
		},
	}
	there.flags(track)
	track.Flags().DurationVar(&every, "interval", 30*time.Second, "live update interval")

	del := &cobra.Command{
		Use:         "delete <id>",
		Short:       "Delete a check-in record (admin)",
		Args:        cobra.ExactArgs(1),
		Annotations: adminAction(gate.Locations),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.Locations.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			notify(cmd.ErrOrStderr(), "Check-in deleted")
			return nil
		},
	}

	mapCmd := &cobra.Command{
		Use:         "map <id>",
		Short:       "Print a map link for a check-in's latest position",
		Args:        cobra.ExactArgs(1),
		Annotations: routed(gate.Locations),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.svc.Locations.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			l := env.Data
			lat, lon := l.Latitude, l.Longitude
			if l.LastLatitude != nil && l.LastLongitude != nil {
				lat, lon = *l.LastLatitude, *l.LastLongitude
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tracking.MapURL(lat, lon))
			return err
		},
	}

	root.AddCommand(list, get, checkin, checkout, track, del, mapCmd)
	return root
}

// track runs live updates until the command is interrupted or the session
// ends.
func (a *app) track(cmd *cobra.Command, tr *tracking.Tracker, id string, interval time.Duration) error {
	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	unsub := a.client.OnSessionInvalidated(stop)
	defer unsub()

	notify(cmd.ErrOrStderr(), "Tracking %s every %s, press Ctrl+C to stop", id, interval)
	err := tr.Track(ctx, id, interval, func(p tracking.Position) {
		a.log.Infow("live update sent", "location", id, "lat", p.Latitude, "lon", p.Longitude)
	})
	if err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}
