/*
Core rebuilds trade lifecycles from an unordered set of fills.

# Module
  - dispatch: partitions fills by venue + account + symbol, sorts each group by time then id
  - worker pool: replays groups in parallel through the lot ledger, one goroutine per group at a time
  - resync: reads a JSONL journal of raw venue payloads, normalizes, dedups and dispatches it

# Source
 1. fills normalized by ingest
 2. raw payload journal written by the live ingest service

# Produce
  - enriched trades, newest first

# Sharded
  - venue + account + symbol
*/
package core
