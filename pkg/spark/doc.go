// Package spark provides the Spark History Server data model and a REST
// client for its /api/v1 surface.
//
// The client is context-aware, rate limited, and retries transient failures
// with exponential backoff. Because the History Server serves immutable
// historical data, responses can be cached on disk indefinitely:
//
//	cache, _ := spark.NewCache("")
//	client, err := spark.NewClient("http://shs.example.com:18080",
//	    spark.WithCache(cache),
//	    spark.WithTimeout(30*time.Second),
//	)
//	app, err := client.GetApplication(ctx, "app-20240115-0001")
//
// The Provider interface abstracts the client for the comparison engine so
// tests can inject canned fixtures.
package spark
