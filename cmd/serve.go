/*
   TheTruth - claim verification against live sources with a local LLM
   Copyright (C) 2025  Unbewohnte (Kasyanov Nikolay Alexeevich)

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"os/signal"
	"syscall"

	"Unbewohnte/TheTruth/internal/bot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveTelegram bool
	servePort     uint
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local web UI, optionally together with the Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Web.Port = servePort
		}

		app, err := newApp(ctx)
		if err != nil {
			return err
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return bot.NewWebServer(app).Start(groupCtx)
		})
		if serveTelegram {
			group.Go(func() error {
				return app.StartTelegram(groupCtx)
			})
		}

		err = group.Wait()
		zap.L().Info("serve: stopped")
		return err
	},
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run only the Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}

		return app.StartTelegram(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveTelegram, "telegram", false, "also run the Telegram bot")
	serveCmd.Flags().UintVarP(&servePort, "port", "p", 0, "web UI port (default from the configuration)")

	rootCmd.AddCommand(serveCmd, telegramCmd)
}
