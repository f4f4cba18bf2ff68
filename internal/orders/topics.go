package orders

import "strconv"

// All order events share one topic; the audit consumer tails it.
const TopicOrderEvents = "shop.order.events"

// Partition key = order_id, so events for one order keep their order.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }
