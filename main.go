package main

import "github.com/seo-optimizer/dashboard/cmd"

func main() {
	cmd.Execute()
}
