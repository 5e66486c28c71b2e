package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/schoolnotes/gradesync/apps/syncd/echo"
	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/core/grades"
	"github.com/schoolnotes/gradesync/core/portal"
	logsvc "github.com/schoolnotes/gradesync/services/logger"
	notifsvc "github.com/schoolnotes/gradesync/services/notification"
	sendgridnotif "github.com/schoolnotes/gradesync/services/notification/sendgrid"
	"github.com/schoolnotes/gradesync/storage/state"
	jsonfilestate "github.com/schoolnotes/gradesync/storage/state/jsonfile"
	pgstate "github.com/schoolnotes/gradesync/storage/state/postgres"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "SYNCD : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up state store
	store, err := setUpStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up state store: %v", err), err)
	}

	// the client jar carries the live portal session; the file jar is shared
	// with the embedded-browser helper
	jar := portal.NewJar()
	fileJar := portal.NewFileJar(filepath.Join(conf.State.Dir, "browser_cookies.json"))

	client := portal.NewClient(conf, jar)

	var notifier core.Notifier
	if conf.Debug {
		notifier = notifsvc.NewConsoleService(conf)
	} else {
		notifier = sendgridnotif.NewService(conf, logger)
	}

	gradeSvc := grades.NewService(conf, logger, client, store, notifier, jar, fileJar)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Background Sync

	scheduler := grades.NewScheduler(gradeSvc, logger, conf.Sync.Interval, conf.Sync.BackgroundDeadline)
	scheduler.Start()
	defer scheduler.Stop()

	watcher, err := watchSessionFile(gradeSvc, fileJar, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("watching session file: %v", err), err)
	} else {
		defer func() { _ = watcher.Close() }()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			GradeSvc:   gradeSvc,
			Store:      store,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStore(conf *core.Config) (state.Store, error) {
	switch conf.State.Backend {
	case "postgres":
		if err := pgstate.CreateIfNotExist(conf); err != nil {
			return nil, err
		}
		db, err := pgstate.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = pgstate.Migrate(db); err != nil {
			return nil, err
		}
		return pgstate.NewStore(db), nil
	default:
		return jsonfilestate.NewStore(conf.State.Dir)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
