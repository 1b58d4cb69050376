// Package dag records the producer/consumer edges between task tree nodes.
// The tree builder registers every node and edge here and asks the graph to
// prove the result acyclic before the tree is handed to the dispatcher.
package dag
