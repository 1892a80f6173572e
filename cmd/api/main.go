// cmd/api/main.go
package main

import "github.com/your-org/storefront-api/internal/cmd"

func main() {
	cmd.Execute()
}
