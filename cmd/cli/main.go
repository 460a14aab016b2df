package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "company":
		handleCompany(args)
	case "product":
		handleProduct(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tradedock auth <register|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleCompany(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tradedock company <list|get|create|mine|categories>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listCompanies(args[1:])
	case "get":
		getCompany(args[1:])
	case "create":
		createCompany(args[1:])
	case "mine":
		myCompany(args[1:])
	case "categories":
		listCategories(args[1:])
	default:
		fmt.Printf("unknown company command: %s\n", subCmd)
	}
}

func handleProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tradedock product <list|get|create|update|delete>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listProducts(args[1:])
	case "get":
		getProduct(args[1:])
	case "create":
		createProduct(args[1:])
	case "update":
		updateProduct(args[1:])
	case "delete":
		deleteProduct(args[1:])
	default:
		fmt.Printf("unknown product command: %s\n", subCmd)
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ User registered: %s\n", *email)
		if token, ok := result["token"].(string); ok {
			saveToken(token)
		}
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/auth/me", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("Not logged in (token expired?)")
		return
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	fmt.Printf("✓ Logged in as: %v\n", result["email"])
}

// Company commands
func listCompanies(args []string) {
	fs := flag.NewFlagSet("company list", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	category := fs.String("category", "", "filter by category")

	fs.Parse(args)

	url := getAPIURL() + "/companies?q=" + *query
	if *category != "" {
		url += "&category=" + *category
	}
	resp, err := http.Get(url)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Companies []map[string]interface{} `json:"companies"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tCITY")
	for _, c := range body.Companies {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", c["id"], c["companyName"], c["category"], c["cityName"])
	}
	w.Flush()
}

func getCompany(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tradedock company get <company-id>")
		return
	}

	resp, err := http.Get(getAPIURL() + "/companies/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("✗ Company not found")
		return
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func createCompany(args []string) {
	fs := flag.NewFlagSet("company create", flag.ExitOnError)
	name := fs.String("name", "", "company name")
	category := fs.String("category", "", "business category")
	about := fs.String("about", "", "company description")
	city := fs.String("city", "", "city")
	country := fs.String("country", "", "country")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"companyName": *name,
		"category":    *category,
		"about":       *about,
		"cityName":    *city,
		"countryName": *country,
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/companies", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Company created: %s\n", *name)
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func myCompany(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/companies/mine", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("No company profile yet")
		return
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func listCategories(args []string) {
	_ = args
	resp, err := http.Get(getAPIURL() + "/categories")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Categories []string `json:"categories"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	for _, c := range body.Categories {
		fmt.Println(c)
	}
}

// Product commands
func listProducts(args []string) {
	fs := flag.NewFlagSet("product list", flag.ExitOnError)
	page := fs.String("page", "1", "page number")
	category := fs.String("category", "", "category (with -q enables search)")
	query := fs.String("q", "", "search query")

	fs.Parse(args)

	url := getAPIURL() + "/products?page=" + *page
	if *category != "" {
		url += "&category=" + *category
	}
	if *query != "" {
		url += "&q=" + *query
	}
	resp, err := http.Get(url)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Products []map[string]interface{} `json:"products"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tMOQ\tCREATED")
	for _, p := range body.Products {
		price := fmt.Sprintf("%v-%v", p["priceMin"], p["priceMax"])
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", p["id"], p["name"], price, p["moq"], p["createdAt"])
	}
	w.Flush()
}

func getProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tradedock product get <product-id>")
		return
	}

	resp, err := http.Get(getAPIURL() + "/products/" + args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("✗ Product not found")
		return
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func createProduct(args []string) {
	fs := flag.NewFlagSet("product create", flag.ExitOnError)
	name := fs.String("name", "", "product name")
	description := fs.String("description", "", "product description")
	moq := fs.String("moq", "", "minimum order quantity")
	priceMin := fs.String("price-min", "", "minimum unit price")
	priceMax := fs.String("price-max", "", "maximum unit price")
	unit := fs.String("unit", "", "unit name (e.g. piece, ton)")

	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":        *name,
		"description": *description,
		"moq":         *moq,
		"priceMin":    *priceMin,
		"priceMax":    *priceMax,
		"unitName":    *unit,
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/products", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Product created: %s\n", *name)
	} else {
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func updateProduct(args []string) {
	fs := flag.NewFlagSet("product update", flag.ExitOnError)
	id := fs.String("id", "", "product ID")
	name := fs.String("name", "", "product name")
	description := fs.String("description", "", "product description")
	moq := fs.String("moq", "", "minimum order quantity")
	priceMin := fs.String("price-min", "", "minimum unit price")
	priceMax := fs.String("price-max", "", "maximum unit price")
	unit := fs.String("unit", "", "unit name (e.g. piece, ton)")

	fs.Parse(args)

	if *id == "" || *name == "" {
		fmt.Println("Error: id and name are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":        *name,
		"description": *description,
		"moq":         *moq,
		"priceMin":    *priceMin,
		"priceMax":    *priceMax,
		"unitName":    *unit,
	}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("PUT", getAPIURL()+"/products/"+*id, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		fmt.Println("✓ Product updated")
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

func deleteProduct(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: tradedock product delete <product-id>")
		return
	}

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/products/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 || resp.StatusCode == 204 {
		fmt.Println("✓ Product deleted")
	} else {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ Failed: %v\n", result)
	}
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("TRADEDOCK_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.tradedock/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.tradedock", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`TradeDock CLI

Usage:
  tradedock <command> [options]

Commands:
  auth     User authentication (register, login, logout, who)
  company  Company directory (list, get, create, mine, categories)
  product  Product catalog (list, get, create, update, delete)
  help     Show this help message

Environment Variables:
  TRADEDOCK_API    API endpoint (default: http://localhost:8080/api)

Examples:
  tradedock auth register -email buyer@example.com -password secret123
  tradedock auth login -email buyer@example.com -password secret123
  tradedock company list -q steel
  tradedock product list -page 2
`)
}
