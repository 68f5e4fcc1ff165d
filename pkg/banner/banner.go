package banner

import (
	"fmt"

	"agentdesk/pkg/config"
)

const banner = `
 █████╗  ██████╗ ███████╗███╗   ██╗████████╗██████╗ ███████╗███████╗██╗  ██╗
██╔══██╗██╔════╝ ██╔════╝████╗  ██║╚══██╔══╝██╔══██╗██╔════╝██╔════╝██║ ██╔╝
███████║██║  ███╗█████╗  ██╔██╗ ██║   ██║   ██║  ██║█████╗  ███████╗█████╔╝ 
██╔══██║██║   ██║██╔══╝  ██║╚██╗██║   ██║   ██║  ██║██╔══╝  ╚════██║██╔═██╗ 
██║  ██║╚██████╔╝███████╗██║ ╚████║   ██║   ██████╔╝███████╗███████║██║  ██╗
╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝   ╚═╝   ╚═════╝ ╚══════╝╚══════╝╚═╝  ╚═╝
`

// Print writes the startup banner and a short effective-config summary.
func Print(cfg *config.Config, addr, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:      %s\n", addr)
	fmt.Printf("Environment: %s\n", cfg.Environment)
	fmt.Printf("DB Path:     %s\n", cfg.Storage.DBPath)
	if version != "" {
		fmt.Printf("Version:     %s\n", version)
	}
	if cfg.Reasoning.Endpoint != "" && cfg.Reasoning.APIKey != "" {
		fmt.Printf("Reasoning:   %s (model=%s)\n", cfg.Reasoning.Endpoint, cfg.Reasoning.Model)
	} else {
		fmt.Println("Reasoning:   unconfigured (heuristic tier only)")
	}
	fmt.Printf("Queue:       %s\n", cfg.Delivery.Queue.Backend)
	if cfg.Delivery.SMTP.Host != "" {
		fmt.Printf("Mail:        smtp://%s\n", cfg.Delivery.SMTP.Host)
	} else {
		fmt.Println("Mail:        log-only (no SMTP host configured)")
	}
	if cfg.Retention.Enabled {
		fmt.Printf("Retention:   enabled (period=%s)\n", cfg.Retention.Period)
	} else {
		fmt.Println("Retention:   disabled")
	}

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/tenants/{t}/tickets                     - Ticket intake")
	fmt.Println("POST /v1/tenants/{t}/tickets/{id}/triage         - Run triage")
	fmt.Println("GET  /v1/tenants/{t}/tickets/{id}/runs           - Audit trail")
	fmt.Println("GET  /v1/tenants/{t}/tickets/{id}/replies/{r}    - Delivery state")
	fmt.Println("GET  /metrics, /healthz, /readyz                 - Ops")
}
