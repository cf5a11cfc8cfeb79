package banner

import "fmt"

const banner = `
██████╗ ███████╗ █████╗  ██████╗████████╗██████╗ ██████╗
██╔══██╗██╔════╝██╔══██╗██╔════╝╚══██╔══╝██╔══██╗██╔══██╗
██████╔╝█████╗  ███████║██║        ██║   ██║  ██║██████╔╝
██╔══██╗██╔══╝  ██╔══██║██║        ██║   ██║  ██║██╔══██╗
██║  ██║███████╗██║  ██║╚██████╗   ██║   ██████╔╝██████╔╝
╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝ ╚═════╝   ╚═╝   ╚═════╝ ╚═════╝
`

// Print writes the startup banner with the effective runtime info.
func Print(addr, callbackAddr, dbPath, sources, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	if callbackAddr != "" {
		fmt.Printf("Callback: %s (fasthttp)\n", callbackAddr)
	}
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if sources != "" {
		fmt.Printf("Config sources: %s\n", sources)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/interactions - Handle a reaction button press (JSON envelope)")
	fmt.Println("POST /v1/messages/{key}/reactions - React directly (JSON: user_id, reaction)")
	fmt.Println("GET  /v1/messages/{key}/reactions - Current counts and keyboard")
	fmt.Println("GET  /v1/messages?limit=<n> - List aggregate records")
	fmt.Println("GET  /metrics - Prometheus metrics")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost%s/v1/interactions' -d '{\"actor_id\":\"u1\",\"raw_payload\":\"react:like:m1\"}'\n", addr)
	fmt.Printf("curl 'http://localhost%s/v1/messages/m1/reactions'\n", addr)
}
