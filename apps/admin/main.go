package main

import (
	"log"
	"os"

	"github.com/schoolnotes/gradesync/core"
	jsonfilestate "github.com/schoolnotes/gradesync/storage/state/jsonfile"
	pgstate "github.com/schoolnotes/gradesync/storage/state/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	cli := commandLine{conf: conf, out: os.Stdout}

	// set up state store; the DB handle stays nil on the jsonfile backend
	switch conf.State.Backend {
	case "postgres":
		errAndDie(pgstate.CreateIfNotExist(conf))
		db, err := pgstate.Open(conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()
		errAndDie(db.Ping())
		cli.db = db
		cli.store = pgstate.NewStore(db)
	default:
		store, err := jsonfilestate.NewStore(conf.State.Dir)
		errAndDie(err)
		cli.store = store
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
