package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dmitrijs2005/gophstream/internal/flagx"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/server"
	"github.com/dmitrijs2005/gophstream/internal/server/config"
)

// issueTokenFlag returns the operator name given via -issue-token, if any.
func issueTokenFlag(args []string) string {
	var operator string

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&operator, "issue-token", "", "print an admin token for the operator and exit")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-issue-token", "--issue-token"}))

	return operator
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if operator := issueTokenFlag(os.Args[1:]); operator != "" {
		token, err := server.IssueAdminToken(cfg, operator)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	app.Run(ctx)

}
