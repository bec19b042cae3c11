// ledgerctl revisa y repara proyecciones de stock contra su log de movimientos.
//
// Uso:
//
//	ledgerctl drift  <product-id>...   compara proyección guardada vs replay (no escribe)
//	ledgerctl repair <product-id>...   reescribe las proyecciones que divergen
//	ledgerctl token  <user-id> <role>  emite un JWT de prueba (operator|admin)
//
// Sale con código 2 si alguna proyección diverge (drift) o no se pudo reparar.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 2 {
		usage()
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		return 1
	}

	cmd, rest := args[0], args[1:]
	if cmd == "token" {
		return issueToken(cfg, rest)
	}
	if cmd != "drift" && cmd != "repair" {
		usage()
		return 1
	}

	log := logger.NewWithWriter(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, Service: "ledgerctl"}, os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := bootstrap.BuildLedger(ctx, cfg, log.Zerolog(), bootstrap.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Armar ledger: %v\n", err)
		return 1
	}
	defer ledger.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tMOVEMENTS\tLIVE_PCS\tREPLAY_PCS\tLIVE_BASE\tREPLAY_BASE\tSTATUS")
	exit := 0
	for _, id := range rest {
		var report inventory.DriftReport
		if cmd == "repair" {
			report, err = ledger.Service.RepairProjection(ctx, id)
		} else {
			report, err = ledger.Service.CheckDrift(ctx, id)
		}
		if err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\terror: %v\n", id, err)
			exit = 2
			continue
		}
		status := "ok"
		switch {
		case report.Repaired:
			status = "repaired"
		case report.Drifted:
			status = "DRIFT"
			exit = 2
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n", id, report.Movements,
			report.Live.StockPieces, report.Replayed.StockPieces,
			report.Live.StockBaseUnits.String(), report.Replayed.StockBaseUnits.String(), status)
	}
	_ = tw.Flush()
	return exit
}

func issueToken(cfg *config.Config, args []string) int {
	if len(args) != 2 {
		usage()
		return 1
	}
	if cfg.JWT.Secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET no definido")
		return 1
	}
	role := args[1]
	if role != jwt.RoleOperator && role != jwt.RoleAdmin {
		fmt.Fprintf(os.Stderr, "Rol inválido %q (operator|admin)\n", role)
		return 1
	}
	tok, err := jwt.Generate(cfg.JWT.Secret, args[0], role, cfg.JWT.Issuer, cfg.JWT.Expiration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Emitir token: %v\n", err)
		return 1
	}
	fmt.Println(tok)
	return 0
}

func usage() {
	fmt.Fprintln(os.Stderr, "uso: ledgerctl drift|repair <product-id>... | ledgerctl token <user-id> <role>")
}
