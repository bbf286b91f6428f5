package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof" // register handlers
	"regexp"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zephyrtronium/hitori/command"
)

func (robo *Robot) api(ctx context.Context, listen string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorMemStatsMetricsDisabled(),
		collectors.WithGoCollectorRuntimeMetrics(
			collectors.GoRuntimeMetricsRule{
				Matcher: regexp.MustCompile(`^(/gc/gogc:percent|/gc/gomemlimit:bytes|/gc/heap/allocs:bytes|/gc/heap/goal:bytes|/memory/classes/total:bytes|/sched/gomaxprocs:threads|/sched/goroutines:goroutines|/sched/latencies:seconds)$`),
			},
		),
	))
	reg.MustRegister(robo.metrics.Collectors()...)
	mux := http.NewServeMux()
	robo.routes(mux, reg)
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("couldn't start API server: %w", err)
	}
	srv := http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}
	go func() {
		robo.log.InfoContext(ctx, "HTTP API server", slog.Any("addr", l.Addr()))
		err := srv.Serve(l)
		if err == http.ErrServerClosed {
			return
		}
		robo.log.ErrorContext(ctx, "HTTP API server closed", slog.Any("err", err))
	}()
	<-ctx.Done()
	// The context is now done, so it is obviously the wrong choice for
	// managing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (robo *Robot) routes(mux *http.ServeMux, reg *prometheus.Registry) {
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, opts))
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("GET /api/commands", robo.apiCommands)
	mux.HandleFunc("GET /api/commands/{name...}", robo.apiCommand)
}

func jsonerror(w http.ResponseWriter, status int, msg string) {
	v := struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  msg,
		Status: status,
	}
	b, err := json.Marshal(&v)
	if err != nil {
		panic(err)
	}
	w.WriteHeader(status)
	w.Write(b)
}

type apiCommand struct {
	Name        string   `json:"name"`
	Module      string   `json:"module"`
	Description string   `json:"description,omitzero"`
	Usage       []string `json:"usage,omitzero"`
	Examples    []string `json:"examples,omitzero"`
	Permission  string   `json:"permission,omitzero"`
	Trigger     string   `json:"trigger"`
	Scope       string   `json:"scope"`
	Behavior    string   `json:"behavior,omitzero"`
}

func describe(e *command.Entry) apiCommand {
	c := apiCommand{
		Name:        e.Name,
		Module:      e.Module,
		Description: e.Description,
		Usage:       e.Usage,
		Examples:    e.Examples,
		Permission:  e.Permission,
		Trigger:     e.Trigger.String(),
		Scope:       e.Scope.String(),
	}
	switch e.Behavior.(type) {
	case command.AwaitParam:
		c.Behavior = "await"
	case command.Collect:
		c.Behavior = "collect"
	case command.Confirm:
		c.Behavior = "confirm"
	}
	return c
}

func (robo *Robot) apiCommands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := robo.log.With(slog.String("api", "commands"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	es := robo.commands.Commands()
	if mod := r.FormValue("module"); mod != "" {
		es = robo.commands.ByModule(mod)
		if len(es) == 0 {
			log.WarnContext(ctx, "no such module", slog.String("module", mod))
			jsonerror(w, http.StatusNotFound, "no such module")
			return
		}
	}
	u := struct {
		Data   []apiCommand `json:"data"`
		Status int          `json:"status"`
	}{
		Data:   make([]apiCommand, len(es)),
		Status: http.StatusOK,
	}
	for i, e := range es {
		u.Data[i] = describe(e)
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}

func (robo *Robot) apiCommand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := robo.log.With(slog.String("api", "command"), slog.Any("trace", uuid.New()))
	log.InfoContext(ctx, "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	defer log.InfoContext(ctx, "done")
	w.Header().Set("Content-Type", "application/json")
	name := r.PathValue("name")
	e, ok := robo.commands.Lookup(name)
	if !ok {
		log.WarnContext(ctx, "no such command", slog.String("name", name))
		jsonerror(w, http.StatusNotFound, "no such command")
		return
	}
	u := struct {
		Data   apiCommand `json:"data"`
		Status int        `json:"status"`
	}{
		Data:   describe(e),
		Status: http.StatusOK,
	}
	b, err := json.Marshal(&u)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(ctx, "write response failed", slog.Any("err", err))
	}
}
