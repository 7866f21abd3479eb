// Package steps содержит фиксированный список шагов provisioning'а
// хоста для обучения и оценки моделей перевода.
//
// # Шаги
//
// Provisioning() возвращает 15 шагов в строгом порядке:
//
//	 1. wget     — pin-файл репозитория CUDA
//	 2. mv       — pin в /etc/apt/preferences.d (sudo)
//	 3. wget     — локальный установщик CUDA 12.6 (.deb)
//	 4. dpkg -i  — установка локального репозитория
//	 5. cp       — keyring репозитория в /usr/share/keyrings
//	 6. apt-get update
//	 7. apt-get install cuda-toolkit-12-6
//	 8. apt-get install nvidia-open
//	 9. apt-get install libprotobuf10 protobuf-compiler libprotobuf-dev
//	10. rm       — удаление скачанного .deb
//	11. git clone marian
//	12. mkdir build       (в marian)
//	13. cmake             (в marian/build)
//	14. make -j8          (в marian/build)
//	15. git clone sacreBLEU (в корне workspace)
//
// Версии CUDA и URL зафиксированы константами.
// Ни один шаг не является best-effort.
//
// # Файл шагов
//
// LoadFile заменяет встроенный список списком из JSON (флаг --steps):
//
//	{
//	  "steps": [
//	    {"name": "update", "command": ["sudo", "apt-get", "update"], "kind": "install"},
//	    {"name": "build", "command": ["make", "-j8"], "dir": "marian/build"}
//	  ]
//	}
//
// Validate проверяет имена и kind сверх domain.ValidateSteps и возвращает
// *ValidationError с номером шага и полем.
package steps
