package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cclient/assets"
	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
	logsvc "github.com/trezcool/cclient/services/logger"
	"github.com/trezcool/cclient/storage/database"
	sqlxrepos "github.com/trezcool/cclient/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	std := logsvc.NewStdLogger(conf)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(false)

	// set up DB
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up validators
	translator, _ := ut.New(en.New()).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	admin.InitValidators(validate, translator)
	admin.LoadCommonPasswords(assets.FS, logger)

	// start CLI
	cli := &commandLine{
		db:         db,
		conf:       conf,
		logger:     logger,
		adminRepo:  sqlxrepos.NewAdminRepository(db),
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
