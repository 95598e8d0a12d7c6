package tools

import (
	"log"
	"os"
)

// CheckEnvs checks the environment variables.
func CheckEnvs(envNames ...string) {
	for _, env := range envNames {
		envStr, exist := os.LookupEnv(env)

		if !exist {
			log.Fatalf("env variable not found: %s", env)
			os.Exit(1)
		}

		if envStr == "" {
			log.Fatalf("env variable not initialized: %s", env)
			os.Exit(1)
		}
	}
}

// EnvOrDefault returns the value of an environment variable, or the fallback
// when the variable is unset or empty.
func EnvOrDefault(env, fallback string) string {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		return v
	}
	return fallback
}

// CreateFolderIfNotExist creates a folder at the path specified in the path variable.
func CreateFolderIfNotExist(path string) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		err := os.MkdirAll(path, os.ModePerm)
		if err != nil {
			panic(err)
		}
	} else if err != nil {
		panic(err)
	}
}
