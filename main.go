package main

import "github.com/CrowderSoup/spearmint/cmd"

func main() {
	cmd.Execute()
}
