// Package mq публикует события provisioning'а в RabbitMQ.
//
// # Топология
//
// Единственный обменник — provisioner.events (topic, durable).
// Routing keys совпадают с типом события:
//
//	run.started   — run начал выполнение
//	step.finished — шаг завершился (SUCCEEDED или FAILED)
//	run.finished  — итог run (SUCCEEDED или FAILED)
//
// SetupTopology объявляет обменник и очередь provisioner.audit,
// привязанную ко всем событиям (#). Остальные потребители привязывают
// свои очереди сами.
//
// # Использование
//
//	conn, err := mq.NewConnection(url, logger)
//	if err != nil {
//	    // события отключены, provisioning продолжается
//	}
//	defer conn.Close()
//
//	sink := mq.NewEventSink(mq.NewPublisher(conn, logger))
//
// EventSink реализует orchestrator.Observer.
package mq
