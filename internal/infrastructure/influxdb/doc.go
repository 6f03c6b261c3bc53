// Package influxdb writes bot run metrics to InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Two measurements are
// written:
//
//   - task_run: one point per task invocation, tagged by task and signal
//   - bot_stats: the cumulative statistics snapshot, written whenever the
//     scheduler prints its report
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStats(st.Snapshot())
//
// Writes are batched according to config.yaml (batch_size, flush_interval)
// and never block. Async write failures are delivered to the SetOnError
// callback and reported once by the next HealthCheck.
package influxdb
