/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/suparena/transientspace"
	"github.com/suparena/transientspace/config"
	"github.com/suparena/transientspace/datastore"
	"github.com/suparena/transientspace/datastore/mock"
	"github.com/suparena/transientspace/datastore/testmodels"
	"github.com/suparena/transientspace/logging"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "npdemo: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("npdemo", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		showVersion bool
		configPath  = fs.String("config", "", "YAML configuration file")
		envFile     = fs.String("env", "", ".env file to load before reading the environment")
		logLevel    = fs.String("log-level", "", "Override the configured log level")
	)
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVersion {
		fmt.Fprintf(out, "transientspace npdemo version %s\n", transientspace.GetVersionInfo())
		return nil
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	if err := config.LoadEnv(envFiles...); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg := prometheus.NewRegistry()
	cfg.Metrics.Enabled = true
	collector, err := transientspace.NewMetrics(cfg, reg)
	if err != nil {
		return err
	}

	storage, err := transientspace.NewStorage(ctx, cfg, transientspace.WithLogger(logger))
	if err != nil {
		return err
	}
	if mem, ok := storage.(*mock.Storage); ok {
		if err := seed(mem); err != nil {
			return err
		}
	}
	logger.Info("storage ready", zap.String("backend", cfg.Storage.Backend))

	opts := []transientspace.Option{transientspace.WithLogger(logger), transientspace.WithMetrics(collector)}
	if err := identityScenario(ctx, out, storage, opts); err != nil {
		return err
	}
	if err := commitScenario(ctx, out, storage, opts); err != nil {
		return err
	}
	return printMetrics(out, reg)
}

func seed(mem *mock.Storage) error {
	now := strfmt.DateTime(time.Now())
	return mem.Seed(
		&testmodels.Customer{ID: 1, Name: "Acme", Region: "EMEA", CreatedAt: &now},
		&testmodels.Customer{ID: 2, Name: "Beta", Region: "APAC", CreatedAt: &now},
		&testmodels.Product{SKU: "A1", Name: "Anvil", Price: 19.9},
	)
}

var managedTypes = []reflect.Type{testmodels.CustomerType, testmodels.ProductType}

// identityScenario resolves one key twice, reloads and resolves it again.
func identityScenario(ctx context.Context, out io.Writer, storage datastore.Storage, opts []transientspace.Option) error {
	s := transientspace.Open(storage, managedTypes, opts...)

	first, err := s.GetObjectByKey(ctx, testmodels.CustomerType, 1)
	if err != nil {
		return err
	}
	if first == nil {
		return fmt.Errorf("customer 1 not found in %T", storage)
	}
	second, err := s.GetObjectByKey(ctx, testmodels.CustomerType, 1)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "customer 1: %s, same instance on second lookup: %t\n",
		first.(*testmodels.Customer).Name, first == second)

	s.Reload(ctx)
	third, err := s.GetObjectByKey(ctx, testmodels.CustomerType, 1)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "after reload, same instance: %t\n", first == third)
	return nil
}

// commitScenario inserts a customer in one session and reads it from another.
func commitScenario(ctx context.Context, out io.Writer, storage datastore.Storage, opts []transientspace.Option) error {
	writer := transientspace.Open(storage, managedTypes, opts...)
	created := &testmodels.Customer{ID: 1000 + int(time.Now().Unix()%100000), Name: "Nova", Region: "EMEA"}
	if err := writer.CreateObject(created); err != nil {
		return err
	}
	if err := writer.CommitChanges(ctx); err != nil {
		return err
	}
	cached, err := writer.GetObjectByKey(ctx, testmodels.CustomerType, created.ID)
	if err != nil {
		return err
	}

	reader := transientspace.Open(storage, managedTypes, opts...)
	loaded, err := reader.GetObjectByKey(ctx, testmodels.CustomerType, created.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "committed customer %d: canonical in writer: %t, visible to reader: %t\n",
		created.ID, cached == any(created), loaded != nil)
	return nil
}

func printMetrics(out io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasSuffix(mf.GetName(), "_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			fmt.Fprintf(out, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
	return nil
}
