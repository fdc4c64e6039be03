package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"LevelVault/internal/gamesave/app"
	"LevelVault/internal/gamesave/app/loader"
	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/infra/crypt"
	"LevelVault/internal/gamesave/infra/savefile"
	"LevelVault/modules/kit/logx"
)

type rootOptions struct {
	file    string
	cipher  string
	aesKey  string
	output  string
	verbose bool
	workers int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "savetool",
		Short:         "Inspect and edit level save files offline",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.file, "file", "f", "CCLocalLevels.dat", "save file path")
	pf.StringVar(&opts.cipher, "cipher", "xor", "file cipher: plain / xor / aes")
	pf.StringVar(&opts.aesKey, "aes-key", "", "key for the aes cipher")
	pf.StringVarP(&opts.output, "output", "o", "yaml", "output format: yaml / json")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	pf.IntVar(&opts.workers, "workers", 0, "decode workers, <=0 means NumCPU-2")

	root.AddCommand(
		newListCmd(opts),
		newStatsCmd(opts),
		newUsageCmd(opts),
		newMigrateCmd(opts),
		newCompactCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// open 打开存档并返回服务，所有子命令共用。
func (o *rootOptions) open(ctx context.Context) (*app.SaveService, error) {
	fileCipher, err := crypt.NewFileCipher(o.cipher, o.aesKey)
	if err != nil {
		return nil, err
	}
	log := logx.Nop()
	if o.verbose {
		zl, err := zap.NewDevelopment()
		if err == nil {
			log = logx.NewZapLogger(zl)
		}
	}
	svc := app.NewSaveService(app.Deps{
		Codec:         object.NewCodec(object.NewRegistry()),
		File:          savefile.New(o.file),
		FileCipher:    fileCipher,
		PayloadCipher: crypt.PayloadCipher{},
		Log:           log,
		CacheOptions:  []loader.Option{loader.WithWorkers(o.workers)},
	})
	if err = svc.Open(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}
