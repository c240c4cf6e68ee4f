// Command routeros-monitor polls a RouterOS device once a second for
// interface traffic counters and fans the computed rates out to whichever
// output sinks the environment configuration enables: a terminal display,
// structured logs, a VictoriaMetrics remote-write client, and a web
// dashboard with a live WebSocket feed.
package main

import (
	"log"
	"strconv"

	routeros "github.com/netwire-go/routeros"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	port, err := strconv.Atoi(config.Port)
	if err != nil {
		log.Fatalf("Invalid ROUTEROS_PORT %q: %v", config.Port, err)
	}

	client := routeros.NewClient(routeros.Options{
		Host: config.Host,
		Port: port,
		SSL:  config.SSL,
	})

	client.
		On("connect", func(...any) { log.Printf("[Client] connected to %s:%d", config.Host, port) }).
		On("error", func(args ...any) { log.Printf("[Client] transport error: %v", args) }).
		On("close", func(...any) { log.Printf("[Client] connection closed") }).
		On("end", func(...any) { log.Printf("[Client] connection ended by peer") })

	if err := client.Connect(); err != nil {
		log.Fatalf("Failed to connect to router: %v", err)
	}
	defer client.Close()

	if err := client.Login(config.Username, config.Password); err != nil {
		log.Fatalf("Failed to login: %v", err)
	}

	log.Printf("Connected to RouterOS at %s:%d", config.Host, port)

	monitor := NewMonitor(client, config)
	if err := monitor.Start(); err != nil {
		log.Fatalf("Monitor stopped: %v", err)
	}
}
