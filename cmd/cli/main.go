package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]
	client := newAPIClient(getAPIURL(), loadToken())

	var err error
	switch command {
	case "auth":
		err = handleAuth(client, args)
	case "contract":
		err = handleContract(client, args)
	case "stats":
		err = showStats(client)
	case "reference":
		err = showReference(client)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

func handleAuth(client *apiClient, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: securelife auth <register|login|logout|who>")
		return nil
	}

	switch args[0] {
	case "register":
		return registerUser(client, args[1:])
	case "login":
		return loginUser(client, args[1:])
	case "logout":
		os.Remove(tokenFile())
		fmt.Println("✓ Logged out")
		return nil
	case "who":
		if client.token == "" {
			fmt.Println("Not logged in")
			return nil
		}
		fmt.Printf("✓ Logged in (token: %s...)\n", client.token[:min(20, len(client.token))])
		return nil
	}
	return fmt.Errorf("unknown auth command: %s", args[0])
}

func handleContract(client *apiClient, args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: securelife contract <get|list|search|status|delete>")
		return nil
	}

	switch args[0] {
	case "get":
		return getContract(client, args[1:])
	case "list":
		return listContracts(client, args[1:])
	case "search":
		return searchContracts(client, args[1:])
	case "status":
		return updateStatus(client, args[1:])
	case "delete":
		return deleteContract(client, args[1:])
	}
	return fmt.Errorf("unknown contract command: %s", args[0])
}

// Auth commands
func registerUser(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	fullName := fs.String("name", "", "full name")
	password := fs.String("password", "", "password")
	role := fs.String("role", "", "role (AGENT and ADMIN need an admin login)")
	fs.Parse(args)

	if *email == "" || *fullName == "" || *password == "" {
		fs.PrintDefaults()
		return fmt.Errorf("email, name, and password are required")
	}

	payload := map[string]string{"email": *email, "fullName": *fullName, "password": *password}
	if *role != "" {
		payload["role"] = *role
	}
	var result authResult
	if err := client.do("POST", "/auth/register", payload, &result); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Printf("✓ User registered: %s (%s)\n", result.Email, result.Role)
	// An admin registering someone else keeps their own session
	if client.token == "" {
		return saveToken(result.Token)
	}
	return nil
}

func loginUser(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	if *email == "" || *password == "" {
		fs.PrintDefaults()
		return fmt.Errorf("email and password are required")
	}

	var result authResult
	if err := client.do("POST", "/auth/login", map[string]string{"email": *email, "password": *password}, &result); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := saveToken(result.Token); err != nil {
		return err
	}
	fmt.Printf("✓ Logged in as: %s (%s)\n", result.Email, result.Role)
	return nil
}

// Contract commands
func contractID(args []string, usage string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("usage: securelife contract %s", usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid contract id %q", args[0])
	}
	return id, nil
}

func getContract(client *apiClient, args []string) error {
	id, err := contractID(args, "get <id>")
	if err != nil {
		return err
	}
	var c contract
	if err := client.do("GET", "/insurances/"+strconv.FormatInt(id, 10), nil, &c); err != nil {
		return err
	}
	printContracts([]contract{c})
	return nil
}

func pageFlags(fs *flag.FlagSet) (*int, *int) {
	return fs.Int("page", 0, "page number (0-based)"), fs.Int("size", 10, "page size (max 100)")
}

func listContracts(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	kind := fs.String("type", "", "auto, home or life (default: all)")
	page, size := pageFlags(fs)
	fs.Parse(args)

	q := url.Values{}
	q.Set("page", strconv.Itoa(*page))
	q.Set("size", strconv.Itoa(*size))
	path := "/insurances"
	if *kind != "" {
		path += "/" + *kind
	}
	var result contractPage
	if err := client.do("GET", path+"?"+q.Encode(), nil, &result); err != nil {
		return err
	}
	printPage(result)
	return nil
}

func searchContracts(client *apiClient, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	q := url.Values{}
	for _, name := range []string{"fullName", "email", "type", "status", "premiumMin", "premiumMax"} {
		name := name
		fs.Func(name, "filter on "+name, func(v string) error {
			q.Set(name, v)
			return nil
		})
	}
	page, size := pageFlags(fs)
	fs.Parse(args)

	q.Set("page", strconv.Itoa(*page))
	q.Set("size", strconv.Itoa(*size))
	var result contractPage
	if err := client.do("GET", "/insurances/search?"+q.Encode(), nil, &result); err != nil {
		return err
	}
	printPage(result)
	return nil
}

func updateStatus(client *apiClient, args []string) error {
	id, err := contractID(args, "status <id> <STATUS>")
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: securelife contract status <id> <STATUS>")
	}
	var c contract
	if err := client.do("PATCH", "/insurances/"+args[0]+"/status", map[string]string{"status": args[1]}, &c); err != nil {
		return err
	}
	fmt.Printf("✓ Contract %d is now %s\n", id, c.Status)
	return nil
}

func deleteContract(client *apiClient, args []string) error {
	id, err := contractID(args, "delete <id>")
	if err != nil {
		return err
	}
	if err := client.do("DELETE", "/insurances/"+args[0], nil, nil); err != nil {
		return err
	}
	fmt.Printf("✓ Contract %d deleted\n", id)
	return nil
}

func showStats(client *apiClient) error {
	var s stats
	if err := client.do("GET", "/insurances/stats", nil, &s); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tCOUNT")
	for status, n := range s.CountByStatus {
		fmt.Fprintf(w, "%s\t%d\n", status, n)
	}
	fmt.Fprintf(w, "TOTAL\t%d\n", s.Total)
	w.Flush()
	fmt.Printf("Total annual premium: %.2f\n", s.TotalAnnualPremium)
	return nil
}

func showReference(client *apiClient) error {
	var ref reference
	if err := client.do("GET", "/insurances/reference", nil, &ref); err != nil {
		return err
	}
	fmt.Printf("Kinds:    %v\nStatuses: %v\n", ref.Kinds, ref.Statuses)
	for _, z := range ref.RiskZones {
		fmt.Printf("Zone %-6s factor %.1f\n", z.Code, z.Factor)
	}
	return nil
}

func printPage(p contractPage) {
	printContracts(p.Items)
	fmt.Printf("page %d, %d of %d contracts\n", p.Page, len(p.Items), p.Total)
}

func printContracts(items []contract) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tKIND\tHOLDER\tSTATUS\tPREMIUM")
	for _, c := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\n", c.ID, c.Number, c.Kind, c.FullName, c.Status, c.AnnualPremium)
	}
	w.Flush()
}

// Helper functions
func getAPIURL() string {
	if api := os.Getenv("SECURELIFE_API"); api != "" {
		return api
	}
	return "http://localhost:8080/api/v1"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.securelife/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	if err := os.MkdirAll(home+"/.securelife", 0700); err != nil {
		return err
	}
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func printUsage() {
	fmt.Print(`SecureLife CLI

Usage:
  securelife <command> [options]

Commands:
  auth       User authentication (register, login, logout, who)
  contract   Contract operations (get, list, search, status, delete)
  stats      Contract statistics - admin access required
  reference  Contract kinds, statuses and risk zones
  help       Show this help message

Environment Variables:
  SECURELIFE_API    API endpoint (default: http://localhost:8080/api/v1)

Examples:
  securelife auth login -email agent@securelife.local -password agent12345
  securelife contract list -type auto -size 20
  securelife contract search -fullName dupont -status ACTIVE
  securelife contract status 42 SUSPENDED
  securelife stats
`)
}
