/*
Package cider is a small pipeline executor driven by a single configuration document.

The document declares pipelines and actions as nested objects. Shareable fields
(language, image, backend, output_directory, source_directory) are inherited top-down,
and only ids named in the `pipelines` and `actions` lists are executed. Each action's
manual steps run in order inside one persistent backend session (bash, batch or a
docker container) and stop at the first nonzero exit code.

# Usage

	eng, err := cider.New("cider_config.json", cider.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	// One pass: resolve, run every active pipeline, then every top-level action.
	report, err := eng.RunOnce(ctx)
	if err != nil {
		log.Fatal(err) // configuration error, nothing ran
	}
	fmt.Println(report.Status())

	// Or keep running a pass after every burst of source changes.
	err = eng.Watch(ctx, func(r *domain.Report, err error) { ... })

After every pass the text log is written to {output_directory}/cider_output.txt.
Additional report destinations are attached with WithReportSink and observability
callbacks with WithLifecycleHooks.
*/
package cider
