// Command deltawatch runs change-detection jobs once and inspects their stores.
//
// Usage:
//
//	deltawatch run [--job listings|contributors] [--output json]
//	deltawatch check [--output json]
//	deltawatch repo --owner golang --name go
//	deltawatch store show [--path known_items.json]
//	deltawatch version
package main

import "deltawatch/internal/cli"

func main() {
	cli.Execute()
}
