package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/storage/database"
	"github.com/trezcool/jamii/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(err)
	}

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(sqlx.NewDb(db, conf.Database.Engine)),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
