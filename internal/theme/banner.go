package theme

import (
	"fmt"
)

// Banner returns a record-shop styled banner.
func Banner() string {
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const yellow = "\033[33m"
	const reset = "\033[0m"

	art := "" +
		"  ♪♫   " + magenta + "TONEARM" + reset + "   ♫♪\n" +
		cyan + "   ▄██████▄    ________\n" + reset +
		cyan + "  ▐██▀◯◯▀██▌  ╱ 33 rpm ╱\n" + reset +
		cyan + "   ▀██▄▄██▀  ╱________╱\n" + reset +
		yellow + "   ──────────────────────\n" + reset +
		"   album recommendations from your crate ♪\n"

	return art
}

// PrintBanner prints the banner to stdout.
func PrintBanner() {
	fmt.Print(Banner())
}
