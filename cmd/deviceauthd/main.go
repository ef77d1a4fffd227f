/*
Copyright 2026 The EdgeKit Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command deviceauthd is the host runtime process that embeds a
// lib/broker.Broker, loads its group configuration from a YAML file on
// disk, and exposes no transport of its own: MQTT listener integration
// and cloud connectivity are wired in by whatever embeds this binary, not
// by this file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/edgekit/deviceauth/api/types"
	"github.com/edgekit/deviceauth/lib/broker"
	"github.com/edgekit/deviceauth/lib/config"
	"github.com/edgekit/deviceauth/lib/store/jsonfile"
)

func main() {
	configPath := flag.String("config", "/etc/deviceauth/config.yaml", "path to the device group configuration file")
	dataDir := flag.String("data-dir", "/var/lib/deviceauth", "directory the certificate and thing registries persist state under")
	flag.Parse()

	log := logrus.WithField("component", "deviceauthd")

	if err := run(*configPath, *dataDir, log); err != nil {
		log.WithError(err).Error("deviceauthd exited with an error")
		os.Exit(1)
	}
}

func run(configPath, dataDir string, log *logrus.Entry) error {
	f, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := config.Load(f)
	if err != nil {
		return err
	}

	backend, err := jsonfile.New(dataDir)
	if err != nil {
		return err
	}

	b := broker.New(broker.Options{
		Backend:       backend,
		TrustDuration: result.TrustDuration,
	})
	if err := b.SetGroupConfiguration(context.Background(), result.GroupConfiguration); err != nil {
		return err
	}

	stopListening := subscribeToWarnings(b, log)
	defer stopListening()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.StartRefresher(ctx)
	defer b.Close()

	log.WithField("config", configPath).Info("deviceauthd ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("deviceauthd shutting down")
	return nil
}

func subscribeToWarnings(b *broker.Broker, log *logrus.Entry) func() {
	return b.Events().Subscribe(func(evt types.Event) {
		log.WithField("event", evt.Kind()).Warn("broker event")
	})
}
