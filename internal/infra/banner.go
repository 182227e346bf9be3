package infra

import (
	"fmt"
)

// ANSI Color Codes
const (
	ColorReset   = "\033[0m"
	ColorRed     = "\033[31m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorBlue    = "\033[34m"
	ColorMagenta = "\033[35m"
	ColorCyan    = "\033[36m"
)

// PrintBanner displays the startup banner.
func PrintBanner(cfg *Config) {
	color := ColorMagenta
	feed := "OFF"
	if cfg.Server.Enabled {
		feed = cfg.Server.Addr
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#              💊 Crimson City Drug Market                #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   TRADER:  %-36s #%s\n", color, cfg.Trader.ID, ColorReset)
	fmt.Printf("%s#   FEED:    %-36s #%s\n", color, feed, ColorReset)
	fmt.Printf("%s#   VERSION: %-36s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
