package main

import "github.com/weerawatman/frappe-performance-pulse-sub001/internal/app/server"

func main() {
	server.Run()
}
