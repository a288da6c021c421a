/*
 * === This file is part of Hive ===
 *
 * Copyright 2025 the Hive authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/swarmind/hive/common/event/topic"
	"github.com/swarmind/hive/common/logger"
)

var log = logger.New(logrus.StandardLogger(), "event")

// Writer publishes audit events to a single Kafka topic as JSON.
type Writer struct {
	*kafka.Writer

	// writeFunction is swapped out in tests
	writeFunction func(message kafka.Message) error
}

func NewWriterWithTopic(topic topic.Topic) *Writer {
	w := &Writer{
		Writer: &kafka.Writer{
			Addr:                   kafka.TCP(viper.GetStringSlice("kafkaEndpoints")...),
			Topic:                  string(topic),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
	w.writeFunction = func(message kafka.Message) error {
		return w.WriteMessages(context.Background(), message)
	}
	return w
}

func (w *Writer) WriteEvent(e interface{}) {
	w.WriteEventWithTimestamp(e, time.Now())
}

func (w *Writer) WriteEventWithTimestamp(e interface{}, timestamp time.Time) {
	var err error
	switch e := e.(type) {
	case *HubEvent:
		e.Timestamp = timestamp.UnixMilli()
		err = w.doWriteEvent(e)
	case *DispatchEvent:
		e.Timestamp = timestamp.UnixMilli()
		err = w.doWriteEvent(e)
	default:
		err = fmt.Errorf("unsupported event type")
	}
	if err != nil {
		log.WithField("event", e).
			Error(err.Error())
	}
}

func (w *Writer) doWriteEvent(e interface{}) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = w.writeFunction(kafka.Message{
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}
