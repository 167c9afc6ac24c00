package main

import (
	"fmt"
	"os"
	"path/filepath"

	xappdirs "github.com/chasinglogic/appdirs"
)

const (
	appName        = "clientlog"
	logFileName    = "clientlog.log"
	configFileName = "clientlog.yaml"
)

// appDirs represents the app's local directories for storing logs and settings.
type appDirs struct {
	config string
	log    string
}

func newAppDirs() appDirs {
	ad := xappdirs.New(appName)
	x := appDirs{
		config: ad.UserConfig(),
		log:    ad.UserLog(),
	}
	return x
}

func (ad appDirs) initLogFile() (string, error) {
	if err := os.MkdirAll(ad.log, os.ModePerm); err != nil {
		return "", err
	}
	return filepath.Join(ad.log, logFileName), nil
}

func (ad appDirs) configFile() string {
	return filepath.Join(ad.config, configFileName)
}

func (ad appDirs) deleteAll() error {
	for _, p := range []string{ad.log, ad.config} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", p)
	}
	return nil
}
