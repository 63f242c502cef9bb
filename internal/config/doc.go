// Package config provides configuration parsing for viewdiff.
//
// The configuration is stored in viewdiff.json. Every field is optional;
// missing fields take their defaults after loading.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 7420,
//	    "readTimeout": "10s"
//	  },
//	  "differ": {
//	    "mode": "optimized",
//	    "assertions": false
//	  },
//	  "mounting": {
//	    "validateWithStubs": true,
//	    "subscriberBuffer": 64
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "viewdiff"
//	  },
//	  "storage": {
//	    "s3": {
//	      "region": "eu-west-1",
//	      "endpoint": "http://localhost:9000",
//	      "bucket": "trees",
//	      "usePathStyle": true
//	    }
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
