//go:build rp2040

// Command pico-trigger is the RP2040 firmware: a doorbell trigger on GP4 printing to the
// console actor, with settings kept in RAM.
package main

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"actorcode-go/bus"
	"actorcode-go/logging"
	"actorcode-go/services/actor"
	"actorcode-go/services/actor/logactor"
	"actorcode-go/services/config"
	"actorcode-go/services/digitalin/pins"
	"actorcode-go/services/heartbeat"
	"actorcode-go/services/post"
	"actorcode-go/services/sched"
	"actorcode-go/services/storage"
	"actorcode-go/services/trigger"
)

const (
	device      = "pico"
	consoleBaud = 115200
	doorbellPin = 4
	maxTasks    = 8
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	if err := logging.UseUART(uartx.UART0, consoleBaud, machine.UART0_TX_PIN, machine.UART0_RX_PIN); err != nil {
		println("[main] uart0:", err.Error())
	}
	log := logging.NewLogger("main", false)
	log.Infof("boot")

	ctx := context.Background()
	b := bus.NewBus(4)
	s := sched.New(ctx, sched.WithMaxTasks(maxTasks))
	store := storage.NewMemory()
	gate := post.New()
	reg := actor.NewRegistry(log)

	if _, err := config.Seed(store, device); err != nil {
		log.Errorf("seed: %v", err)
	}

	console := logactor.New("console", log)
	_ = reg.Register(console)

	bell := trigger.New("doorbell", doorbellPin, "Doorbell.json", trigger.Deps{
		Pins:     pins.NewRP2Factory(),
		Sched:    s,
		Store:    store,
		Registry: reg,
		POST:     gate,
		Log:      log,
	})
	_ = reg.Register(bell)
	if err := bell.Begin(ctx); err != nil {
		log.Errorf("doorbell: %v", err)
	}

	actors := actor.NewService(reg, b.NewConnection("actors"), log, nil)
	cfg := config.NewConfigService(b.NewConnection("config"), reg, store, log)
	cfg.OnApplied = actors.PublishInfo
	go actors.Start()(ctx)
	go cfg.Start()(ctx)

	if store.Exists(bell.ConfigPath()) {
		gate.Pass()
		log.Infof("POST passed")
	} else {
		log.Errorf("POST failed: settings not writable")
	}

	hb := &heartbeat.Service{Tasks: s.Names, Log: log.Named("heartbeat")}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	select {}
}
