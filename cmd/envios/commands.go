package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/envios/internal/auth"
	"github.com/dukerupert/envios/internal/export"
	"github.com/dukerupert/envios/internal/model"
	"github.com/dukerupert/envios/internal/report"
)

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", "", "Account email (prompted if omitted)")
	password := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		fmt.Fprint(a.stdout, "Email: ")
		v, err := a.readLine()
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		*email = v
	}
	if *password == "" {
		fmt.Fprint(a.stdout, "Password: ")
		v, err := a.readPassword()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(a.stdout)
		*password = v
	}

	sess, dash, err := a.auth.Login(ctx, *email, *password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return errors.New("Credenciales incorrectas")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s (%s, %s)\n", sess.Email, dash, sess.BranchName)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}
	dash, _ := auth.DashboardOf(sess.Role)
	fmt.Fprintf(a.stdout, "%s\tid=%d\trole=%d (%s)\tbranch=%s\n", sess.Email, sess.UserID, sess.Role, dash, sess.BranchName)
	return nil
}

func cmdInventory(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "inventory")
	q := fs.String("q", "", "Filter by product name or SKU")
	page := fs.Int("page", 1, "Show matches up to this page")
	refresh := fs.Bool("refresh", false, "Fetch even when the cached list is fresh")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.current(ctx); err != nil {
		return err
	}

	p, err := a.inventory.Search(ctx, *q, *page, *refresh)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSKU\tPRODUCTO\tSTOCK\tPRECIO")
	for _, prod := range p.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%.2f\n", prod.ID, prod.SKU, prod.Name, prod.Stock, float64(prod.Price))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%d of %d shown (page %d, %s", len(p.Items), p.Matches, p.Page, p.State)
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(a.stdout, ", updated %s", p.UpdatedAt.Format(time.DateTime))
	}
	fmt.Fprintln(a.stdout, ")")
	if p.Error != "" {
		fmt.Fprintf(a.stderr, "warning: showing cached products, refresh failed: %s\n", p.Error)
	}
	return nil
}

func cmdOrder(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "order")
	id := fs.Int64("id", 0, "Order ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("missing required flag: id")
	}
	if _, err := a.current(ctx); err != nil {
		return err
	}

	o, err := a.client.Order(ctx, model.Int(*id))
	if err != nil {
		return fmt.Errorf("load order %d: %w", *id, err)
	}
	fmt.Fprintf(a.stdout, "Pedido %d (%s)\n", o.ID, o.Status)
	fmt.Fprintf(a.stdout, "  Cliente:   %s\n", o.CustomerName)
	fmt.Fprintf(a.stdout, "  Recogida:  %s\n", o.PickupAddress)
	fmt.Fprintf(a.stdout, "  Entrega:   %s, %s\n", o.DeliveryAddress, o.City)
	fmt.Fprintf(a.stdout, "  Franja:    %s - %s\n", o.WindowStart, o.WindowEnd)
	fmt.Fprintf(a.stdout, "  Cobro:     %.2f\n", o.Charge())
	return nil
}

const unassigned = "sin-asignar"

func cmdOrders(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "orders")
	status := fs.String("status", model.StatusWaiting, "Order status, or "+unassigned)
	driver := fs.Int64("driver", 0, "Only this courier's orders (uses filtrar-pedidos)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}

	var orders []model.Order
	switch {
	case *driver > 0:
		orders, err = a.client.FilterOrders(ctx, model.Int(*driver), *status)
	case *status == unassigned:
		orders, err = a.client.UnassignedOrders(ctx)
	case *status == model.StatusWaiting:
		orders, err = a.client.WaitingOrders(ctx, sess.UserID)
	default:
		orders, err = a.client.OrdersByStatus(ctx, *status, sess.UserID)
	}
	if err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFECHA\tESTADO\tCLIENTE\tCIUDAD\tCOBRO")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.2f\n", o.ID, o.Date, o.Status, o.CustomerName, o.City, o.Charge())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d orders\n", len(orders))
	return nil
}

func cmdRelease(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "release")
	id := fs.Int64("id", 0, "Order ID to return to the unassigned pool")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("missing required flag: id")
	}
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}

	ack, err := a.client.ReleaseOrder(ctx, sess.UserID, model.Int(*id))
	if err != nil {
		return fmt.Errorf("release order %d: %w", *id, err)
	}
	printAck(a.stdout, ack.Message, fmt.Sprintf("Order %d released", *id))
	return nil
}

func cmdNewOrder(ctx context.Context, a *app, _ []string) error {
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}
	var order model.NewOrder
	if err := decodeStdin(a, &order); err != nil {
		return err
	}

	ack, err := a.client.CreateOrder(ctx, sess.UserID, order)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	printAck(a.stdout, ack.Message, "Order created")
	return nil
}

func cmdDashboard(ctx context.Context, a *app, _ []string) error {
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}
	s, err := report.Summarize(ctx, a.client, sess, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Dashboard %s, %s\n", s.Dashboard, s.Day)
	switch {
	case s.Branch != nil:
		b := s.Branch
		fmt.Fprintf(a.stdout, "  Pedidos: %d  Entregados: %d (%.2f%%)  Devueltos: %d (%.2f%%)  En proceso: %d\n",
			b.Total, b.Delivered, b.DeliveryRate, b.Returned, b.ReturnRate, b.InProgress)
	case s.Driver != nil:
		d := s.Driver
		fmt.Fprintf(a.stdout, "  En espera: %d  Por entregar: %d  Fallidas: %d  Entregados: %d  Ganancias: %.2f\n",
			d.Waiting, d.InProgress, d.Failed, d.Delivered, d.Earnings)
	case s.Drivers != nil:
		t := s.Drivers
		fmt.Fprintf(a.stdout, "  Repartidores: %d  Pedidos: %d  Entregados: %d  Total: %.2f\n",
			t.Drivers, t.Orders, t.Delivered, t.Total)
	}
	return nil
}

func cmdReport(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "report")
	kind := fs.String("tipo", model.RangeToday, "Range kind: hoy or personalizado")
	from := fs.String("desde", "", "Start date YYYY-MM-DD (personalizado)")
	to := fs.String("hasta", "", "End date YYYY-MM-DD (personalizado)")
	xlsxPath := fs.String("xlsx", "", "Write the report to this .xlsx file")
	upload := fs.Bool("upload", false, "Upload the report as .xlsx to the configured S3 bucket")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kind == model.RangeCustom && (*from == "" || *to == "") {
		return fmt.Errorf("personalizado needs -desde and -hasta")
	}
	sess, err := a.current(ctx)
	if err != nil {
		return err
	}

	rng := model.ReportRange{Kind: *kind, From: *from, To: *to}
	rows, err := a.client.DriverReport(ctx, sess.UserID, rng)
	if err != nil {
		return fmt.Errorf("driver report: %w", err)
	}
	rows = report.InRange(rows, rng)

	if *upload {
		u, err := export.New(a.cfg.Export, a.logger)
		if err != nil {
			return err
		}
		key, err := u.UploadReport(ctx, sess.UserID, rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Uploaded %d rows to s3://%s/%s\n", len(rows), a.cfg.Export.Bucket, key)
		return nil
	}
	if *xlsxPath != "" {
		return writeXLSXFile(*xlsxPath, rows, a.stdout)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "REPARTIDOR\tPEDIDOS\tENTREGADOS\tDEVUELTOS\tEN PROCESO\tEN ESPERA\tTOTAL\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t\n",
			report.DriverName(r), r.TotalOrders, r.Delivered, r.Returned, r.InProgress, r.Waiting, float64(r.Total))
	}
	t := report.Sum(rows)
	fmt.Fprintf(tw, "Total\t%d\t%d\t%d\t%d\t%d\t%.2f\t\n", t.Orders, t.Delivered, t.Returned, t.InProgress, t.Waiting, t.Total)
	return tw.Flush()
}

func writeXLSXFile(path string, rows []model.DriverReportRow, stdout io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := report.WriteXLSX(f, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Wrote %d rows to %s\n", len(rows), path)
	return nil
}

func cmdRegisterBranch(ctx context.Context, a *app, _ []string) error {
	var reg model.BranchRegistration
	if err := decodeStdin(a, &reg); err != nil {
		return err
	}
	ack, err := a.client.RegisterBranch(ctx, reg)
	if err != nil {
		return fmt.Errorf("register branch: %w", err)
	}
	printAck(a.stdout, ack.Message, "Branch registered")
	return nil
}

func cmdRegisterDriver(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register-driver")
	face := fs.String("foto-cara", "", "Profile photo file")
	doc := fs.String("foto-documento", "", "Identity document photo file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var reg model.DriverRegistration
	if err := decodeStdin(a, &reg); err != nil {
		return err
	}
	for _, u := range []struct {
		path string
		dst  **model.Upload
	}{{*face, &reg.FacePhoto}, {*doc, &reg.DocumentPhoto}} {
		if u.path == "" {
			continue
		}
		f, err := os.Open(u.path)
		if err != nil {
			return fmt.Errorf("open %s: %w", u.path, err)
		}
		defer f.Close()
		*u.dst = &model.Upload{Filename: filepath.Base(u.path), Content: f}
	}

	ack, err := a.client.RegisterDriver(ctx, reg)
	if err != nil {
		return fmt.Errorf("register driver: %w", err)
	}
	printAck(a.stdout, ack.Message, "Driver registered")
	return nil
}

func decodeStdin(a *app, v any) error {
	dec := json.NewDecoder(a.lines)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("read JSON from stdin: %w", err)
	}
	return nil
}

func printAck(w io.Writer, msg, fallback string) {
	if strings.TrimSpace(msg) == "" {
		msg = fallback
	}
	fmt.Fprintln(w, msg)
}
